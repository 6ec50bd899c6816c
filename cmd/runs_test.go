package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(1500 * time.Millisecond)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Status:      model.RunStatusComplete,
			MinYear:     2000,
			StartedAt:   now,
			CompletedAt: &done,
			Regions:     27,
			Skipped:     1,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			MinYear:   2000,
			MaxYear:   2010,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "REGIONS")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "2000-2010")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "1.5s")
}

func TestYearWindow(t *testing.T) {
	assert.Equal(t, "all", yearWindow(0, 0))
	assert.Equal(t, "2000-", yearWindow(2000, 0))
	assert.Equal(t, "-2010", yearWindow(0, 2010))
	assert.Equal(t, "1872-2020", yearWindow(1872, 2020))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestRequireStore(t *testing.T) {
	useConfig(t, t.TempDir(), store.DriverNone)
	_, err := requireStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store configured")

	useConfig(t, t.TempDir(), store.DriverSQLite)
	st, err := requireStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NoError(t, st.Close())
}
