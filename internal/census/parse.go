package census

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/capital-stats/percapita/internal/model"
)

// ErrUnparseable is returned when a non-empty, non-sentinel cell cannot be
// read as a number.
var ErrUnparseable = eris.New("census: unparseable value")

// ErrInvalidCount is returned for an incident count that is negative, NaN or
// infinite.
var ErrInvalidCount = eris.New("census: invalid incident count")

// ValidCount reports whether n can be used as an incident count.
func ValidCount(n float64) bool {
	return n >= 0 && !math.IsInf(n, 0)
}

// Default census window used by the trend export.
const (
	DefaultTrendMinYear = 1872
	DefaultTrendMaxYear = 2020
)

// missingMarkers are the placeholders statistics tables use for "no value".
var missingMarkers = map[string]struct{}{
	"...": {},
	"..":  {},
	"-":   {},
	"X":   {},
}

// IsMissing reports whether a raw cell denotes a missing observation.
func IsMissing(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, ok := missingMarkers[s]
	return ok
}

// ParsePopulation turns a raw census row into a population series. Years
// outside [minYear, maxYear] are dropped (a zero bound is open), missing
// cells are dropped, and "." thousands separators are stripped.
func ParsePopulation(raw model.RawPopulation, minYear, maxYear int) (model.PopulationSeries, error) {
	series := make(model.PopulationSeries, 0, len(raw.Readings))
	for _, r := range raw.Readings {
		if minYear > 0 && r.Year < minYear {
			continue
		}
		if maxYear > 0 && r.Year > maxYear {
			continue
		}
		if IsMissing(r.Value) {
			continue
		}

		digits := strings.ReplaceAll(strings.TrimSpace(r.Value), ".", "")
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrUnparseable, "census: region %s year %d value %q", raw.Region, r.Year, r.Value)
		}
		series = append(series, model.Census{Year: r.Year, Population: n})
	}

	slices.SortStableFunc(series, func(a, b model.Census) int { return cmp.Compare(a.Year, b.Year) })
	return series, nil
}

// PopulationTable parses every raw row into a region × year table of
// population counts. Regions left with no observations are omitted.
func PopulationTable(raws []model.RawPopulation, minYear, maxYear int) (*model.RegionTable, error) {
	table := model.NewRegionTable()
	for _, raw := range raws {
		series, err := ParsePopulation(raw, minYear, maxYear)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			continue
		}
		row := make(model.YearValues, len(series))
		for _, c := range series {
			row[c.Year] = float64(c.Population)
		}
		table.Put(raw.Region, row)
	}
	return table, nil
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name, returning empty string if not found.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// yearColumn pairs a header index with the year it holds.
type yearColumn struct {
	index int
	year  int
}

// yearColumns returns the header cells that are plain years, skipping the
// given identifier columns.
func yearColumns(header []string, skip ...int) []yearColumn {
	var cols []yearColumn
	for i, h := range header {
		if slices.Contains(skip, i) {
			continue
		}
		h = strings.TrimSpace(h)
		// Spreadsheet headers sometimes come back as "2000.0".
		h = strings.TrimSuffix(h, ".0")
		y, err := strconv.Atoi(h)
		if err != nil {
			continue
		}
		cols = append(cols, yearColumn{index: i, year: y})
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}
