package models

import "time"

// RunStatistics reports what one pipeline run did. Callers may discard
// it; the orchestrator also logs it on completion.
type RunStatistics struct {
	Query          string        `json:"query"`
	Mode           string        `json:"mode"`
	ItemsRetrieved int           `json:"items_retrieved"`
	ItemsPersisted int           `json:"items_persisted"`
	RemoteAttempts int           `json:"remote_attempts"`
	RemoteResults  int           `json:"remote_results"`
	LocalResults   int           `json:"local_results"`
	Reduction      float64       `json:"reduction"`
	Elapsed        time.Duration `json:"elapsed"`
}
