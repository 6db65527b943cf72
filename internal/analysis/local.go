package analysis

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/opiniq/sentilens/internal/clients"
	"github.com/opiniq/sentilens/internal/models"
)

const (
	positiveThreshold = 0.20
	negativeThreshold = -0.20

	// Joined inputs below this length are returned unchanged;
	// summarizing them would only lose information.
	summaryCharFloor = 50

	// Inputs beyond this word count are truncated before summarization
	// to respect the underlying model's input ceiling.
	summaryWordBudget = 800

	summaryFallbackChars = 200

	// IntentFeedback is the constant intent assigned on the local
	// path; intent classification is a remote-tier concern.
	IntentFeedback = "user_feedback"
)

var basicEmotionMap = map[string][]string{
	models.SentimentPositive: {"satisfaction", "joy"},
	models.SentimentNegative: {"frustration", "disappointment"},
	models.SentimentNeutral:  {"neutral"},
}

// nativeLabelMap translates classifier label vocabularies into the
// three sentiment classes. Unrecognized labels map to neutral.
var nativeLabelMap = map[string]string{
	"positive": models.SentimentPositive,
	"negative": models.SentimentNegative,
	"neutral":  models.SentimentNeutral,
	"label_0":  models.SentimentNegative,
	"label_1":  models.SentimentNeutral,
	"label_2":  models.SentimentPositive,
}

// NormalizeLabel maps a native classifier label to one of the three
// sentiment classes, defaulting to neutral.
func NormalizeLabel(label string) string {
	if normalized, ok := nativeLabelMap[strings.ToLower(label)]; ok {
		return normalized
	}
	return models.SentimentNeutral
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

func RemoveLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return bareURLPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(string(output)), " ")

	return RemoveLinks(plainText)
}

// LocalEngine is the fast, unrate-limited analysis tier. Classification
// runs fully in-process; summarization delegates to the self-hosted
// summarizer service when one is configured.
type LocalEngine struct {
	analyzer   *govader.SentimentIntensityAnalyzer
	summarizer *clients.SummarizerClient
}

func NewLocalEngine(summarizer *clients.SummarizerClient) *LocalEngine {
	return &LocalEngine{
		analyzer:   govader.NewSentimentIntensityAnalyzer(),
		summarizer: summarizer,
	}
}

// Classify returns one of the three sentiment classes plus a
// confidence score in [0,1]. Unscorable input is neutral at 0.5; this
// path never fails.
func (e *LocalEngine) Classify(text string) (string, float64) {
	plainText := ConvertMarkdownToText(text)
	if strings.TrimSpace(plainText) == "" {
		return models.SentimentNeutral, 0.5
	}

	sentiment := e.analyzer.PolarityScores(plainText)
	compound := sentiment.Compound
	magnitude := math.Min(1, math.Abs(compound))

	switch {
	case compound >= positiveThreshold:
		return models.SentimentPositive, magnitude
	case compound <= negativeThreshold:
		return models.SentimentNegative, magnitude
	default:
		return models.SentimentNeutral, 1 - magnitude
	}
}

// Summarize condenses the joined texts. Inputs under the character
// floor are a no-op; oversized inputs are truncated to the word budget
// first. Failures degrade to head truncation, never to an error.
func (e *LocalEngine) Summarize(texts []string, maxLen, minLen int) string {
	fullText := strings.Join(texts, " ")

	if len(fullText) < summaryCharFloor {
		return fullText
	}

	if words := strings.Fields(fullText); len(words) > summaryWordBudget {
		fullText = strings.Join(words[:summaryWordBudget], " ")
	}

	if e.summarizer == nil {
		return truncateForFallback(fullText)
	}

	resp, err := e.summarizer.Summarize(models.SummaryRequest{
		Text:      fullText,
		MaxLength: maxLen,
		MinLength: minLen,
	})
	if err != nil {
		slog.Error("[LocalEngine] Summarization failed, falling back to truncation",
			slog.String("error", err.Error()))
		return truncateForFallback(fullText)
	}

	return resp.SummaryText
}

func truncateForFallback(text string) string {
	if len(text) <= summaryFallbackChars {
		return text
	}
	return text[:summaryFallbackChars] + "..."
}

// BasicAnalysis builds a local-tier result: classification plus the
// fixed emotion mapping. Aspects are always empty on this path.
func (e *LocalEngine) BasicAnalysis(text string) models.AnalysisResult {
	label, score := e.Classify(text)

	return models.AnalysisResult{
		Sentiment: label,
		Score:     score,
		Emotions:  basicEmotionMap[label],
		Intent:    IntentFeedback,
		Aspects:   []models.AspectSentiment{},
	}
}
