package models

// SentimentDistribution holds per-class record counts for one subject
// inside one time window. All zeros is a valid "no data" result.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Total    int `json:"total"`
}

// TrendBucket is one fixed-width time interval of the trend view.
// Bucket labels are formatted timestamps and sort lexically in time
// order at a fixed granularity.
type TrendBucket struct {
	Bucket   string `json:"timestamp"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

type WordCloudEntry struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// SubjectTrend pairs one comparison subject with its trend buckets.
type SubjectTrend struct {
	Subject string        `json:"subject"`
	Trends  []TrendBucket `json:"trends"`
}
