// Package model holds the data types shared by the loaders, the per-capita
// pipeline, the writers and the store.
package model

import (
	"cmp"
	"slices"
)

// Reading is a single raw census cell before parsing.
type Reading struct {
	Year  int    `json:"year"`
	Value string `json:"value"`
}

// RawPopulation is one region's census row as handed over by the population provider.
type RawPopulation struct {
	Region   string    `json:"region"`
	Name     string    `json:"name,omitempty"`
	Readings []Reading `json:"readings"`
}

// Census is a parsed census observation.
type Census struct {
	Year       int   `json:"year"`
	Population int64 `json:"population"`
}

// PopulationSeries is a region's parsed census observations, ordered by year.
type PopulationSeries []Census

// Years returns the census years in series order.
func (s PopulationSeries) Years() []int {
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = c.Year
	}
	return out
}

// IncidentSeries maps a year to the number of incidents recorded that year.
type IncidentSeries map[int]float64

// Years returns the years present in the series, ascending.
func (s IncidentSeries) Years() []int {
	out := make([]int, 0, len(s))
	for y := range s {
		out = append(out, y)
	}
	slices.SortFunc(out, cmp.Compare[int])
	return out
}
