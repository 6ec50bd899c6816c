package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/store"
)

func testDataset() *Dataset {
	rates := model.NewRegionTable()
	rates.Put("1100205", model.YearValues{2000: 0.1, 2005: 0.1, 2010: 0.15})
	rates.Put("1302603", model.YearValues{2010: 0.2})

	return &Dataset{
		RunID: "run-1",
		Rates: rates,
		Names: map[string]string{"1100205": "Porto Velho"},
		Population: map[string]model.RawPopulation{
			"1100205": {Region: "1100205", Name: "Porto Velho", Readings: []model.Reading{
				{Year: 2000, Value: "100"},
				{Year: 2010, Value: "200"},
			}},
			"1200401": {Region: "1200401", Readings: []model.Reading{
				{Year: 2000, Value: "100"},
			}},
			"1400100": {Region: "1400100", Readings: []model.Reading{
				{Year: 2000, Value: "-5"},
				{Year: 2010, Value: "200"},
			}},
		},
	}
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewRouter(NewServer(nil, nil), nil)

	rec := doGet(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListRates(t *testing.T) {
	h := NewRouter(NewServer(testDataset(), nil), nil)

	rec := doGet(t, h, "/rates")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ratesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Regions, 2)
	assert.Equal(t, "1100205", resp.Regions[0].Region)
	assert.Equal(t, "Porto Velho", resp.Regions[0].Name)
	assert.Len(t, resp.Regions[0].Values, 3)
	assert.Equal(t, "1302603", resp.Regions[1].Region)
}

func TestRates_NoDataset(t *testing.T) {
	h := NewRouter(NewServer(nil, nil), nil)

	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, h, "/rates").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, h, "/rates/1100205").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, h, "/population/1100205?year=2005").Code)
}

func TestGetRates(t *testing.T) {
	h := NewRouter(NewServer(testDataset(), nil), nil)

	rec := doGet(t, h, "/rates/1302603")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"region":"1302603","values":[{"year":2010,"value":0.2}]}`, rec.Body.String())

	rec = doGet(t, h, "/rates/9999999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown region")
}

func TestGetPopulation(t *testing.T) {
	h := NewRouter(NewServer(testDataset(), nil), nil)

	rec := doGet(t, h, "/population/1100205?year=2005&year=2000&year=2010")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1100205", resp.Region)
	assert.Equal(t, "Porto Velho", resp.Name)
	require.Len(t, resp.Estimates, 3)
	assert.Equal(t, 2005, resp.Estimates[0].Year)
	assert.InDelta(t, 150.0, resp.Estimates[0].Value, 1e-9)
	assert.InDelta(t, 100.0, resp.Estimates[1].Value, 1e-9)
	assert.InDelta(t, 200.0, resp.Estimates[2].Value, 1e-9)
}

func TestGetPopulation_Errors(t *testing.T) {
	h := NewRouter(NewServer(testDataset(), nil), nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown region", "/population/9999999?year=2005", http.StatusNotFound},
		{"missing year", "/population/1100205", http.StatusBadRequest},
		{"bad year", "/population/1100205?year=abc", http.StatusBadRequest},
		{"out of range", "/population/1100205?year=2015", http.StatusBadRequest},
		{"insufficient data", "/population/1200401?year=2000", http.StatusUnprocessableEntity},
		{"malformed census", "/population/1400100?year=2005", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, h, tt.path)
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSetDataset(t *testing.T) {
	s := NewServer(nil, nil)
	h := NewRouter(s, nil)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, h, "/rates").Code)

	s.SetDataset(testDataset())
	assert.Equal(t, http.StatusOK, doGet(t, h, "/rates").Code)
}

func TestCORS(t *testing.T) {
	h := NewRouter(NewServer(nil, nil), []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, 2000, 0)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunSummary{Regions: 2}))
	_, err = st.CreateRun(ctx, 2000, 0)
	require.NoError(t, err)

	h := NewRouter(NewServer(nil, st), nil)

	rec := doGet(t, h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = doGet(t, h, "/runs?status=complete")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/runs?limit=-1").Code)
}

func TestListRuns_NoStore(t *testing.T) {
	h := NewRouter(NewServer(nil, nil), nil)
	assert.Equal(t, http.StatusNotFound, doGet(t, h, "/runs").Code)
}
