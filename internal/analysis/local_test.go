package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiniq/sentilens/internal/models"
)

func TestClassify_Positive(t *testing.T) {
	engine := NewLocalEngine(nil)

	label, score := engine.Classify("I absolutely love this, it is wonderful and amazing!")
	assert.Equal(t, models.SentimentPositive, label)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestClassify_Negative(t *testing.T) {
	engine := NewLocalEngine(nil)

	label, score := engine.Classify("I hate this, it is terrible, awful and disappointing.")
	assert.Equal(t, models.SentimentNegative, label)
	assert.Greater(t, score, 0.0)
}

func TestClassify_EmptyInputIsNeutral(t *testing.T) {
	engine := NewLocalEngine(nil)

	label, score := engine.Classify("   ")
	assert.Equal(t, models.SentimentNeutral, label)
	assert.Equal(t, 0.5, score)
}

func TestClassify_NeutralScoreIsConfidence(t *testing.T) {
	engine := NewLocalEngine(nil)

	label, score := engine.Classify("The meeting is scheduled for Tuesday.")
	require.Equal(t, models.SentimentNeutral, label)
	// Neutral confidence is inverted magnitude, so flat text scores high.
	assert.Greater(t, score, 0.5)
}

func TestBasicAnalysis(t *testing.T) {
	engine := NewLocalEngine(nil)

	result := engine.BasicAnalysis("I absolutely love this, it is wonderful!")
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.Equal(t, []string{"satisfaction", "joy"}, result.Emotions)
	assert.Equal(t, IntentFeedback, result.Intent)
	assert.Empty(t, result.Aspects)
	assert.NotNil(t, result.Aspects)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, models.SentimentNegative, NormalizeLabel("LABEL_0"))
	assert.Equal(t, models.SentimentNeutral, NormalizeLabel("label_1"))
	assert.Equal(t, models.SentimentPositive, NormalizeLabel("label_2"))
	assert.Equal(t, models.SentimentPositive, NormalizeLabel("Positive"))
	assert.Equal(t, models.SentimentNeutral, NormalizeLabel("gibberish"))
}

func TestRemoveLinks(t *testing.T) {
	input := "check [the docs](https://example.com/docs) or https://example.com directly"
	cleaned := RemoveLinks(input)
	assert.NotContains(t, cleaned, "https://")
	assert.Contains(t, cleaned, "the docs")
}

func TestConvertMarkdownToText(t *testing.T) {
	plain := ConvertMarkdownToText("# Heading\n\nSome **bold** text")
	assert.NotContains(t, plain, "#")
	assert.NotContains(t, plain, "**")
	assert.Contains(t, plain, "bold")
}

func TestSummarize_ShortInputReturnedUnchanged(t *testing.T) {
	engine := NewLocalEngine(nil)

	out := engine.Summarize([]string{"tiny input"}, 50, 1)
	assert.Equal(t, "tiny input", out)
}

func TestSummarize_NoSummarizerTruncates(t *testing.T) {
	engine := NewLocalEngine(nil)

	long := strings.Repeat("word ", 100)
	out := engine.Summarize([]string{long}, 50, 1)
	assert.LessOrEqual(t, len(out), summaryFallbackChars+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}
