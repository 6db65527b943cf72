package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	openai "github.com/sashabaranov/go-openai"

	"github.com/opiniq/sentilens/internal/clients"
	"github.com/opiniq/sentilens/internal/models"
)

const (
	remoteModel         = openai.GPT3Dot5Turbo1106
	remoteRetryAttempts = 3
	remoteTemperature   = 0.3
	remoteMaxTokens     = 500

	initialRemoteBackoff = 500 * time.Millisecond

	summaryRefineMinDocs = 5
	summaryLocalDocCap   = 10
	summaryRemoteDocCap  = 20
	summaryDocSnippetLen = 100
)

// ChatCompleter is the slice of the OpenAI client the engine uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var hybridEmotionMap = map[string][]string{
	models.SentimentPositive: {"satisfaction", "appreciation"},
	models.SentimentNegative: {"frustration", "concern"},
	models.SentimentNeutral:  {"neutral"},
}

// RemoteEngine is the rate-limited reasoning tier: aspect extraction
// and structured summaries. Every call is governor-gated; analysis
// results are memoized by content hash. Constructed without credentials
// it is permanently disabled and every analysis call reports
// ErrRemoteDisabled so callers degrade to the local tier.
type RemoteEngine struct {
	chat     ChatCompleter
	local    *LocalEngine
	governor *Governor
	cache    *resultCache
}

func NewRemoteEngine(client *clients.OpenAIClient, local *LocalEngine, governor *Governor) *RemoteEngine {
	engine := &RemoteEngine{
		local:    local,
		governor: governor,
		cache:    newResultCache(cacheMaxEntries, cacheEntryTTL, clockwork.NewRealClock()),
	}
	if client != nil {
		engine.chat = client.Client
	}
	return engine
}

func (e *RemoteEngine) Enabled() bool {
	return e.chat != nil
}

// Analyze combines local classification with remote aspect extraction.
// Memoized by content hash: a repeated text returns the prior full
// result without touching either engine. Errors mean the caller must
// fall back to the local tier; failed analyses are never cached.
func (e *RemoteEngine) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	cacheKey := ContentHash(text)
	if cached, ok := e.cache.get(cacheKey); ok {
		slog.Debug("[RemoteEngine] Cache hit for text analysis")
		return cached, nil
	}

	label, score := e.local.Classify(text)

	aspects, err := e.ExtractAspects(ctx, text)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	result := models.AnalysisResult{
		Sentiment: label,
		Score:     score,
		Emotions:  hybridEmotionMap[label],
		Intent:    IntentFeedback,
		Aspects:   aspects,
	}

	e.cache.put(cacheKey, result)
	return result, nil
}

// ExtractAspects asks the remote service for aspect-level sentiment.
// The payload must match the fixed schema exactly; anything else is
// ErrMalformedResponse and is never retried.
func (e *RemoteEngine) ExtractAspects(ctx context.Context, text string) ([]models.AspectSentiment, error) {
	content, err := e.chatCompletion(ctx, aspectSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	payload, err := parseAspectPayload(content)
	if err != nil {
		slog.Warn("[RemoteEngine] Rejecting malformed aspect payload",
			slog.String("error", err.Error()))
		return nil, err
	}

	return payload, nil
}

// StructuredSummary produces the batch summary for documents sharing a
// sentiment context. Never cached (batch-specific) and never fails:
// every remote problem degrades to the locally summarized fallback.
func (e *RemoteEngine) StructuredSummary(ctx context.Context, documents []string, sentimentContext string) models.SummaryData {
	if len(documents) == 0 {
		return models.SummaryData{
			Overview:         "No documents available for summary.",
			KeyInsights:      []string{},
			OverallSentiment: models.SentimentNeutral,
		}
	}

	localDocs := documents
	if len(localDocs) > summaryLocalDocCap {
		localDocs = localDocs[:summaryLocalDocCap]
	}
	localSummary := e.local.Summarize(localDocs, 50, 1)

	if e.Enabled() && len(documents) > summaryRefineMinDocs {
		summary, err := e.refineSummary(ctx, documents, sentimentContext)
		if err == nil {
			return summary
		}
		slog.Error("[RemoteEngine] Structured summary generation failed, using local fallback",
			slog.String("error", err.Error()))
	}

	return models.SummaryData{
		Overview:         localSummary,
		KeyInsights:      []string{fmt.Sprintf("Based on %d documents analyzed.", len(documents))},
		OverallSentiment: NormalizeLabel(sentimentContext),
	}
}

func (e *RemoteEngine) refineSummary(ctx context.Context, documents []string, sentimentContext string) (models.SummaryData, error) {
	docs := documents
	if len(docs) > summaryRemoteDocCap {
		docs = docs[:summaryRemoteDocCap]
	}

	var sb strings.Builder
	for _, doc := range docs {
		snippet := doc
		if len(snippet) > summaryDocSnippetLen {
			snippet = snippet[:summaryDocSnippetLen]
		}
		sb.WriteString("- ")
		sb.WriteString(snippet)
		sb.WriteString("\n")
	}
	prompt := fmt.Sprintf("Context: %s\nComments:\n%s", sentimentContext, sb.String())

	content, err := e.chatCompletion(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return models.SummaryData{}, err
	}

	return parseSummaryPayload(content)
}

// chatCompletion issues one governor-gated request. Rate-limit
// responses retry with exponential backoff up to the attempt cap; the
// slot is released before each backoff sleep so waiting does not starve
// other callers. Any other error class is returned immediately.
func (e *RemoteEngine) chatCompletion(ctx context.Context, systemPrompt, userContent string) (string, error) {
	if e.chat == nil {
		return "", ErrRemoteDisabled
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userContent},
	}

	backoff := initialRemoteBackoff
	for attempt := 1; attempt <= remoteRetryAttempts; attempt++ {
		content, err := e.completeOnce(ctx, messages)
		if err == nil {
			return content, nil
		}
		if !isRateLimit(err) {
			return "", err
		}

		slog.Warn("[RemoteEngine] Rate limited, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff))

		if attempt == remoteRetryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return "", fmt.Errorf("%w after %d attempts", ErrRateLimited, remoteRetryAttempts)
}

func (e *RemoteEngine) completeOnce(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if err := e.governor.Acquire(ctx); err != nil {
		return "", err
	}
	defer e.governor.Release()

	resp, err := e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       remoteModel,
		Messages:    messages,
		Temperature: remoteTemperature,
		MaxTokens:   remoteMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// parseAspectPayload validates the aspect schema with a strict typed
// decode. External JSON is never evaluated dynamically.
func parseAspectPayload(content string) ([]models.AspectSentiment, error) {
	cleaned := cleanModelResponse(content)
	if cleaned == "" {
		return nil, ErrMalformedResponse
	}

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()

	var payload models.AspectExtractionPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Aspects == nil {
		return nil, fmt.Errorf("%w: missing aspects array", ErrMalformedResponse)
	}

	aspects := make([]models.AspectSentiment, 0, len(payload.Aspects))
	for _, aspect := range payload.Aspects {
		if aspect.Aspect == "" {
			return nil, fmt.Errorf("%w: aspect entry missing name", ErrMalformedResponse)
		}
		aspect.Sentiment = NormalizeLabel(aspect.Sentiment)
		aspects = append(aspects, aspect)
	}
	return aspects, nil
}

func parseSummaryPayload(content string) (models.SummaryData, error) {
	cleaned := cleanModelResponse(content)
	if cleaned == "" {
		return models.SummaryData{}, ErrMalformedResponse
	}

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()

	var summary models.SummaryData
	if err := decoder.Decode(&summary); err != nil {
		return models.SummaryData{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if summary.Overview == "" {
		return models.SummaryData{}, fmt.Errorf("%w: missing overview", ErrMalformedResponse)
	}
	if !models.ValidSentiment(summary.OverallSentiment) {
		summary.OverallSentiment = models.SentimentNeutral
	}
	if summary.KeyInsights == nil {
		summary.KeyInsights = []string{}
	}
	return summary, nil
}

// cleanModelResponse strips Markdown code fences the model sometimes
// wraps around its JSON and confirms the remainder looks like an
// object. Returns "" when no object can be recovered.
func cleanModelResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "\n")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimPrefix(cleaned, "\n")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	if !(strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}")) {
		return ""
	}
	return cleaned
}
