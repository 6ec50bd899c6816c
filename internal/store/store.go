// Package store persists pipeline runs and their rate and estimate tables.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/capital-stats/percapita/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, minYear, maxYear int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Tables
	SaveRates(ctx context.Context, runID string, rates *model.PerCapitaTable) (int64, error)
	SaveEstimates(ctx context.Context, runID string, estimates *model.EstimateTable) (int64, error)
	// LoadRates returns a run's rate table. An empty runID selects the
	// latest complete run.
	LoadRates(ctx context.Context, runID string) (*model.PerCapitaTable, string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver. DriverNone returns a nil Store.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if databaseURL == "" {
			databaseURL = "percapita.db"
		}
		return NewSQLite(databaseURL)
	case DriverPostgres:
		return NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// tableRows flattens a region table into (run, region, year, value) rows in
// sorted order.
func tableRows(runID string, t *model.RegionTable) [][]any {
	var rows [][]any
	for _, region := range t.Regions() {
		row, _ := t.Row(region)
		for _, year := range row.Years() {
			rows = append(rows, []any{runID, region, year, row[year]})
		}
	}
	return rows
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
