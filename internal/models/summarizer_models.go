package models

// SummaryRequest is the payload sent to the local summarization service.
type SummaryRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

type SummaryResponse struct {
	SummaryText string `json:"summary_text"`
}
