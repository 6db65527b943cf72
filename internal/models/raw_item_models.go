package models

import "time"

// RawItem is one piece of text about a subject as returned by a
// retrieval source. It is transient: consumed once by the pipeline.
type RawItem struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url,omitempty"`
}
