package census

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/fetcher"
	"github.com/capital-stats/percapita/internal/model"
)

// Source loads provider tables from local paths or remote URLs.
type Source struct {
	Opener   *fetcher.Opener
	Encoding string // charset of CSV assets
	TempDir  string // download dir for remote spreadsheets; defaults to os.TempDir()
}

// Rows reads the table at location. Spreadsheets (.xlsx) are read from the
// first sheet; anything else is parsed as CSV.
func (s *Source) Rows(ctx context.Context, location string) ([][]string, error) {
	log := zap.L().With(zap.String("component", "census"), zap.String("location", location))
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	if fetcher.Ext(location) == ".xlsx" {
		rows, err = s.readSpreadsheet(ctx, location)
	} else {
		rows, err = s.readCSV(ctx, location)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("table loaded", zap.Int("rows", len(rows)), zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

func (s *Source) readCSV(ctx context.Context, location string) ([][]string, error) {
	rc, err := s.Opener.Open(ctx, location)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open %s", location)
	}
	defer rc.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSV(ctx, rc, fetcher.CSVOptions{
		Encoding:   s.Encoding,
		LazyQuotes: true,
		TrimSpace:  true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "census: read %s", location)
	}
	return rows, nil
}

func (s *Source) readSpreadsheet(ctx context.Context, location string) ([][]string, error) {
	tempDir := s.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	path, cleanup, err := s.Opener.Localize(ctx, location, tempDir)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch %s", location)
	}
	defer cleanup()

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "census: read %s", location)
	}
	return rows, nil
}

// Population loads and reads the population table.
func (s *Source) Population(ctx context.Context, location string) ([]model.RawPopulation, error) {
	rows, err := s.Rows(ctx, location)
	if err != nil {
		return nil, err
	}
	return ReadPopulation(rows)
}

// Incidents loads and reads the incident table.
func (s *Source) Incidents(ctx context.Context, location string) (map[string]model.IncidentSeries, error) {
	rows, err := s.Rows(ctx, location)
	if err != nil {
		return nil, err
	}
	return ReadIncidents(rows)
}

// Capitals loads and reads the capitals reference table.
func (s *Source) Capitals(ctx context.Context, location string) (model.Regions, error) {
	rows, err := s.Rows(ctx, location)
	if err != nil {
		return nil, err
	}
	return ReadCapitals(rows)
}
