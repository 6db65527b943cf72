package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiniq/sentilens/internal/models"
)

type fakeRetriever struct {
	items []models.RawItem
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) []models.RawItem {
	return f.items
}

type fakeLocal struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeLocal) BasicAnalysis(text string) models.AnalysisResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return models.AnalysisResult{
		Sentiment: models.SentimentNeutral,
		Score:     0.5,
		Emotions:  []string{"neutral"},
		Intent:    "user_feedback",
		Aspects:   []models.AspectSentiment{},
	}
}

type fakeRemote struct {
	mu       sync.Mutex
	calls    int
	enabled  bool
	failFor  string
	summarys map[string]models.SummaryData
}

func (f *fakeRemote) Analyze(_ context.Context, text string) (models.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failFor != "" && strings.Contains(text, f.failFor) {
		return models.AnalysisResult{}, errors.New("remote unavailable")
	}
	return models.AnalysisResult{
		Sentiment: models.SentimentPositive,
		Score:     0.8,
		Emotions:  []string{"satisfaction", "appreciation"},
		Intent:    "user_feedback",
		Aspects: []models.AspectSentiment{
			{Aspect: "battery", Sentiment: models.SentimentNegative, Quote: "battery"},
		},
	}, nil
}

func (f *fakeRemote) StructuredSummary(_ context.Context, documents []string, sentimentContext string) models.SummaryData {
	if f.summarys != nil {
		if summary, ok := f.summarys[sentimentContext]; ok {
			return summary
		}
	}
	return models.SummaryData{
		Overview:         "summary",
		KeyInsights:      []string{},
		OverallSentiment: sentimentContext,
	}
}

func (f *fakeRemote) Enabled() bool { return f.enabled }

type fakeStore struct {
	mu        sync.Mutex
	inserted  [][]models.SentimentRecord
	recent    []models.SentimentRecord
	insertErr error
}

func (f *fakeStore) BulkInsert(_ context.Context, records []models.SentimentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, records)
	return nil
}

func (f *fakeStore) Recent(_ context.Context, _ string, _ int) ([]models.SentimentRecord, error) {
	return f.recent, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.SentimentRecord
}

func (f *fakePublisher) PublishRecords(records []models.SentimentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, records...)
	return nil
}

// Nine items: indices 0, 3, 6 carry long texts that sample remotely,
// the rest are short and stay local. The remote call for index 3 fails
// and falls back to the local tier.
func nineItems() []models.RawItem {
	long := strings.Repeat("a detailed account of everyday matters without incident ", 3)
	items := make([]models.RawItem, 9)
	for i := range items {
		items[i] = models.RawItem{
			Text:      "short note",
			Source:    "reddit",
			Timestamp: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		}
	}
	items[0].Text = long
	items[3].Text = long + " FAILME"
	items[6].Text = long
	return items
}

func TestRun_HybridRoutingAndFallback(t *testing.T) {
	retriever := &fakeRetriever{items: nineItems()}
	local := &fakeLocal{}
	remote := &fakeRemote{enabled: true, failFor: "FAILME"}
	store := &fakeStore{}
	publisher := &fakePublisher{}

	orchestrator := NewOrchestrator(retriever, local, remote, store, publisher)

	stats, err := orchestrator.Run(context.Background(), "widgets", ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, "widgets", stats.Query)
	assert.Equal(t, ModeHybrid, stats.Mode)
	assert.Equal(t, 9, stats.ItemsRetrieved)
	assert.Equal(t, 9, stats.ItemsPersisted)
	assert.Equal(t, 3, stats.RemoteAttempts)
	assert.Equal(t, 2, stats.RemoteResults)
	assert.Equal(t, 7, stats.LocalResults)
	assert.InDelta(t, 1.0-3.0/9.0, stats.Reduction, 1e-9)

	require.Len(t, store.inserted, 1)
	assert.Len(t, store.inserted[0], 9)
	assert.Len(t, publisher.published, 9)

	for _, record := range store.inserted[0] {
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "widgets", record.Query)
		assert.False(t, record.Timestamp.IsZero())
	}
}

func TestRun_EmptyRetrievalCompletesWithoutPersisting(t *testing.T) {
	store := &fakeStore{}
	orchestrator := NewOrchestrator(&fakeRetriever{}, &fakeLocal{}, &fakeRemote{}, store, nil)

	stats, err := orchestrator.Run(context.Background(), "nothing", ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ItemsRetrieved)
	assert.Equal(t, 0, stats.ItemsPersisted)
	assert.Empty(t, store.inserted)
}

func TestRun_EmptyTextsDroppedBeforeDispatch(t *testing.T) {
	retriever := &fakeRetriever{items: []models.RawItem{
		{Text: "real content", Source: "reddit"},
		{Text: "   ", Source: "reddit"},
		{Text: "", Source: "newsapi"},
	}}
	local := &fakeLocal{}
	store := &fakeStore{}
	orchestrator := NewOrchestrator(retriever, local, &fakeRemote{}, store, nil)

	stats, err := orchestrator.Run(context.Background(), "q", ModeLocal)
	require.NoError(t, err)

	// Retrieved counts every item, persisted only the analyzable one.
	assert.Equal(t, 3, stats.ItemsRetrieved)
	assert.Equal(t, 1, stats.ItemsPersisted)
	assert.Equal(t, 1, local.calls)
}

func TestRun_EmptyItemsKeepSamplingSlots(t *testing.T) {
	long := strings.Repeat("a detailed account of everyday matters without incident ", 3)
	retriever := &fakeRetriever{items: []models.RawItem{
		{Text: "", Source: "reddit"},
		{Text: long, Source: "reddit"},
		{Text: "short note", Source: "reddit"},
	}}
	remote := &fakeRemote{enabled: true}
	orchestrator := NewOrchestrator(retriever, &fakeLocal{}, remote, &fakeStore{}, nil)

	stats, err := orchestrator.Run(context.Background(), "q", ModeHybrid)
	require.NoError(t, err)

	// The empty item holds index 0, so the long keyword-free item sits
	// at index 1 and is not sampled remotely.
	assert.Equal(t, 0, stats.RemoteAttempts)
	assert.Equal(t, 2, stats.LocalResults)
	assert.Equal(t, 3, stats.ItemsRetrieved)
	assert.Equal(t, 2, stats.ItemsPersisted)
	assert.InDelta(t, 1.0, stats.Reduction, 1e-9)
}

func TestRun_UnknownModeRejected(t *testing.T) {
	orchestrator := NewOrchestrator(&fakeRetriever{}, &fakeLocal{}, &fakeRemote{}, &fakeStore{}, nil)

	_, err := orchestrator.Run(context.Background(), "q", "turbo")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRun_LocalModeNeverCallsRemote(t *testing.T) {
	remote := &fakeRemote{enabled: true}
	orchestrator := NewOrchestrator(&fakeRetriever{items: nineItems()}, &fakeLocal{}, remote, &fakeStore{}, nil)

	stats, err := orchestrator.Run(context.Background(), "q", ModeLocal)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.RemoteAttempts)
	assert.Equal(t, 9, stats.LocalResults)
	assert.Equal(t, 0, remote.calls)
}

func TestRun_RemoteModeWithDisabledRemoteDegradesToLocal(t *testing.T) {
	remote := &fakeRemote{enabled: false}
	orchestrator := NewOrchestrator(&fakeRetriever{items: nineItems()}, &fakeLocal{}, remote, &fakeStore{}, nil)

	stats, err := orchestrator.Run(context.Background(), "q", ModeRemote)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.RemoteAttempts)
	assert.Equal(t, 9, stats.LocalResults)
}

func TestRun_AllRemoteFailuresStillPersistEverything(t *testing.T) {
	remote := &fakeRemote{enabled: true, failFor: "a detailed"}
	store := &fakeStore{}
	orchestrator := NewOrchestrator(&fakeRetriever{items: nineItems()}, &fakeLocal{}, remote, store, nil)

	stats, err := orchestrator.Run(context.Background(), "q", ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.RemoteAttempts)
	assert.Equal(t, 0, stats.RemoteResults)
	assert.Equal(t, 9, stats.LocalResults)
	assert.Equal(t, 9, stats.ItemsPersisted)
}

func TestRun_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("table missing")
	store := &fakeStore{insertErr: boom}
	orchestrator := NewOrchestrator(&fakeRetriever{items: nineItems()}, &fakeLocal{}, &fakeRemote{}, store, nil)

	_, err := orchestrator.Run(context.Background(), "q", ModeLocal)
	assert.ErrorIs(t, err, boom)
}

func TestRun_DefaultsToHybrid(t *testing.T) {
	orchestrator := NewOrchestrator(&fakeRetriever{}, &fakeLocal{}, &fakeRemote{}, &fakeStore{}, nil)

	stats, err := orchestrator.Run(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, stats.Mode)
}

func TestRunWithSummary_GroupsBySentiment(t *testing.T) {
	recent := []models.SentimentRecord{
		{Text: "great", Analysis: models.AnalysisResult{Sentiment: models.SentimentPositive}},
		{Text: "awful", Analysis: models.AnalysisResult{Sentiment: models.SentimentNegative}},
		{Text: "fine", Analysis: models.AnalysisResult{Sentiment: models.SentimentNeutral}},
		{Text: "also great", Analysis: models.AnalysisResult{Sentiment: models.SentimentPositive}},
		{Text: "odd label", Analysis: models.AnalysisResult{Sentiment: "mixed"}},
	}
	store := &fakeStore{recent: recent}
	orchestrator := NewOrchestrator(&fakeRetriever{}, &fakeLocal{}, &fakeRemote{}, store, nil)

	_, summaries, err := orchestrator.RunWithSummary(context.Background(), "q", ModeLocal)
	require.NoError(t, err)

	require.Len(t, summaries, 3)
	assert.Equal(t, models.SentimentPositive, summaries[models.SentimentPositive].OverallSentiment)
	assert.Equal(t, models.SentimentNegative, summaries[models.SentimentNegative].OverallSentiment)
	// Unknown labels fold into neutral.
	assert.Contains(t, summaries, models.SentimentNeutral)
}
