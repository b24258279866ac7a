package models

import "time"

// NetworkResult is the outcome of collecting one network within a cycle.
// Snapshot is nil when the network was skipped.
type NetworkResult struct {
	Network    string           `json:"network"`
	Snapshot   *NetworkSnapshot `json:"snapshot"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"durationMs"`
}

// CycleReport summarizes one pass over every configured network.
type CycleReport struct {
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	DurationMs int64           `json:"durationMs"`
	Networks   []NetworkResult `json:"networks"`
}

// BatchProgress is reported after each probe group completes.
type BatchProgress struct {
	Network   string `json:"network"`
	Batch     int    `json:"batch"`
	Batches   int    `json:"batches"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Online    int    `json:"online"`
}

// VersionCount is one entry of an ordered version distribution.
type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}
