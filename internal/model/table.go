package model

import (
	"maps"
	"slices"
	"sync"
)

// YearValues maps a year to a value for one region.
type YearValues map[int]float64

// Years returns the row's years, ascending.
func (v YearValues) Years() []int {
	return slices.Sorted(maps.Keys(v))
}

// RegionTable is a region × year table of floats. Put is safe for concurrent
// use; iteration helpers return sorted keys so output is deterministic.
type RegionTable struct {
	mu   sync.RWMutex
	rows map[string]YearValues
}

// PerCapitaTable holds incidents per resident, keyed by region and year.
type PerCapitaTable = RegionTable

// EstimateTable holds estimated resident population, keyed by region and year.
type EstimateTable = RegionTable

// NewRegionTable returns an empty table.
func NewRegionTable() *RegionTable {
	return &RegionTable{rows: make(map[string]YearValues)}
}

// Put stores a region's row, replacing any previous row for that region.
func (t *RegionTable) Put(region string, row YearValues) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[region] = maps.Clone(row)
}

// Row returns a copy of a region's row.
func (t *RegionTable) Row(region string) (YearValues, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[region]
	if !ok {
		return nil, false
	}
	return maps.Clone(row), true
}

// Value returns a single cell.
func (t *RegionTable) Value(region string, year int) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[region][year]
	return v, ok
}

// Len returns the number of regions with a row.
func (t *RegionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Regions returns the region codes, ascending.
func (t *RegionTable) Regions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.rows))
}

// Years returns the union of years across all rows, ascending.
func (t *RegionTable) Years() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[int]struct{})
	for _, row := range t.rows {
		for y := range row {
			seen[y] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Map returns a deep copy of the table contents.
func (t *RegionTable) Map() map[string]YearValues {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]YearValues, len(t.rows))
	for k, row := range t.rows {
		out[k] = maps.Clone(row)
	}
	return out
}
