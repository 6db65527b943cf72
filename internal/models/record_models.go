package models

import "time"

// SentimentRecord is the persisted unit of analysis. Immutable once
// created; the pipeline owns it until it is handed to storage.
type SentimentRecord struct {
	ID        string         `json:"id" dynamodbav:"id"`
	Query     string         `json:"query" dynamodbav:"query"`
	Text      string         `json:"text" dynamodbav:"text"`
	Source    string         `json:"source" dynamodbav:"source"`
	Timestamp time.Time      `json:"timestamp" dynamodbav:"timestamp"`
	Analysis  AnalysisResult `json:"analysis" dynamodbav:"analysis"`
}
