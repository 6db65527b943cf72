package models

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// AspectSentiment is one extracted aspect with its sentiment and the
// exact supporting snippet from the input text.
type AspectSentiment struct {
	Aspect    string `json:"aspect"`
	Sentiment string `json:"sentiment"`
	Quote     string `json:"quote"`
}

type AnalysisResult struct {
	Sentiment string            `json:"sentiment"`
	Score     float64           `json:"score"`
	Emotions  []string          `json:"emotions"`
	Intent    string            `json:"intent"`
	Aspects   []AspectSentiment `json:"aspects"`
}

// ValidSentiment reports whether label is one of the three sentiment
// classes records are grouped by.
func ValidSentiment(label string) bool {
	switch label {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}
