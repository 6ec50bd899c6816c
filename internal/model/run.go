package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded execution of the per-capita pipeline.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	MinYear     int        `json:"min_year"`
	MaxYear     int        `json:"max_year,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Regions     int        `json:"regions"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
}

// RunSummary holds the counts recorded when a run completes.
type RunSummary struct {
	Regions int `json:"regions"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
