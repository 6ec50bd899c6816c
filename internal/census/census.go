// Package census reads the population, incident and capitals reference
// tables and turns raw census rows into population series.
package census

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/capital-stats/percapita/internal/model"
)

// Column positions fixed by the providers.
const (
	populationCodeColumn = 0
	incidentCodeColumn   = 1
)

// Column names fixed by the providers.
const (
	populationNameColumn       = "Capital"
	incidentAbbrevColumn       = "Sigla"
	incidentMunicipalityColumn = "Município"
)

func normalizeCode(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

// ReadPopulation converts a population table (header row first) into raw
// census rows. The region code is column 0, the Capital column carries the
// name and every other year-titled column is a census reading.
func ReadPopulation(rows [][]string) ([]model.RawPopulation, error) {
	if len(rows) == 0 {
		return nil, eris.New("census: population table is empty")
	}
	header := rows[0]
	colIdx := mapColumns(header)

	skip := []int{populationCodeColumn}
	if idx, ok := colIdx[strings.ToLower(populationNameColumn)]; ok {
		skip = append(skip, idx)
	}
	years := yearColumns(header, skip...)
	if len(years) == 0 {
		return nil, eris.New("census: population table has no year columns")
	}

	seen := make(map[string]struct{}, len(rows)-1)
	out := make([]model.RawPopulation, 0, len(rows)-1)
	for i, record := range rows[1:] {
		code := normalizeCode(cell(record, populationCodeColumn))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			return nil, eris.Errorf("census: population row %d: duplicate region %s", i+2, code)
		}
		seen[code] = struct{}{}

		raw := model.RawPopulation{
			Region:   code,
			Name:     getCol(record, colIdx, populationNameColumn),
			Readings: make([]model.Reading, 0, len(years)),
		}
		for _, yc := range years {
			raw.Readings = append(raw.Readings, model.Reading{Year: yc.year, Value: cell(record, yc.index)})
		}
		out = append(out, raw)
	}
	return out, nil
}

// ReadIncidents converts an incident table (header row first) into per-region
// incident series. The region code is column 1; Sigla and Município are
// ignored. Empty or placeholder cells leave the year out of the series.
func ReadIncidents(rows [][]string) (map[string]model.IncidentSeries, error) {
	if len(rows) == 0 {
		return nil, eris.New("census: incident table is empty")
	}
	header := rows[0]
	colIdx := mapColumns(header)

	skip := []int{incidentCodeColumn}
	for _, name := range []string{incidentAbbrevColumn, incidentMunicipalityColumn} {
		if idx, ok := colIdx[strings.ToLower(name)]; ok {
			skip = append(skip, idx)
		}
	}
	years := yearColumns(header, skip...)
	if len(years) == 0 {
		return nil, eris.New("census: incident table has no year columns")
	}

	out := make(map[string]model.IncidentSeries, len(rows)-1)
	for i, record := range rows[1:] {
		code := normalizeCode(cell(record, incidentCodeColumn))
		if code == "" {
			continue
		}
		if _, dup := out[code]; dup {
			return nil, eris.Errorf("census: incident row %d: duplicate region %s", i+2, code)
		}

		series := make(model.IncidentSeries, len(years))
		for _, yc := range years {
			v := cell(record, yc.index)
			if IsMissing(v) {
				continue
			}
			n, err := cast.ToFloat64E(strings.TrimSpace(v))
			if err != nil {
				return nil, eris.Wrapf(ErrUnparseable, "census: incidents region %s year %d value %q", code, yc.year, v)
			}
			if !ValidCount(n) {
				return nil, eris.Wrapf(ErrInvalidCount, "census: incidents region %s year %d value %q", code, yc.year, v)
			}
			series[yc.year] = n
		}
		out[code] = series
	}
	return out, nil
}
