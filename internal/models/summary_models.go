package models

// SummaryData is the structured summary produced for one batch of
// documents sharing a sentiment context.
type SummaryData struct {
	Overview         string   `json:"overview"`
	KeyInsights      []string `json:"keyInsights"`
	OverallSentiment string   `json:"overallSentiment"`
}

// AspectExtractionPayload is the exact JSON shape the remote reasoning
// service must return for aspect extraction. Anything else is rejected.
type AspectExtractionPayload struct {
	Aspects []AspectSentiment `json:"aspects"`
}
