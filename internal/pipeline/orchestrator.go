package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/opiniq/sentilens/internal/analysis"
	"github.com/opiniq/sentilens/internal/models"
	"github.com/opiniq/sentilens/internal/utils"
)

// Analysis modes. Hybrid routes per item; the other two force a tier
// for every item.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
	ModeHybrid = "hybrid"
)

// Run stages, logged as each begins.
const (
	stageRetrieve = "RETRIEVE"
	stageAnalyze  = "ROUTE_AND_ANALYZE"
	stagePersist  = "PERSIST"
	stageComplete = "COMPLETE"
)

const summaryRecentLimit = 50

var ErrUnknownMode = errors.New("unknown analysis mode")

// Retriever collects raw items for a query. It never fails; an empty
// slice is a valid outcome.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []models.RawItem
}

// LocalAnalyzer is the in-process tier. It cannot fail.
type LocalAnalyzer interface {
	BasicAnalysis(text string) models.AnalysisResult
}

// RemoteAnalyzer is the rate-limited reasoning tier. An error from
// Analyze means the orchestrator falls back to the local tier for that
// item.
type RemoteAnalyzer interface {
	Analyze(ctx context.Context, text string) (models.AnalysisResult, error)
	StructuredSummary(ctx context.Context, documents []string, sentimentContext string) models.SummaryData
	Enabled() bool
}

type RecordStore interface {
	BulkInsert(ctx context.Context, records []models.SentimentRecord) error
	Recent(ctx context.Context, query string, limit int) ([]models.SentimentRecord, error)
}

// BatchPublisher emits persisted records to downstream consumers.
// Optional and best-effort.
type BatchPublisher interface {
	PublishRecords(records []models.SentimentRecord) error
}

// Orchestrator drives one query through retrieve, analyze, and persist.
// Safe for concurrent runs; all per-run state lives on the stack.
type Orchestrator struct {
	retriever Retriever
	local     LocalAnalyzer
	remote    RemoteAnalyzer
	store     RecordStore
	publisher BatchPublisher
	clock     clockwork.Clock
}

func NewOrchestrator(retriever Retriever, local LocalAnalyzer, remote RemoteAnalyzer, store RecordStore, publisher BatchPublisher) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		local:     local,
		remote:    remote,
		store:     store,
		publisher: publisher,
		clock:     clockwork.NewRealClock(),
	}
}

// WithClock swaps the time source. Run statistics and record timestamps
// come from it.
func (o *Orchestrator) WithClock(clock clockwork.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Run processes one query in the given mode and blocks until the
// records are persisted. Partial results survive individual item
// failures; only storage errors and an unknown mode fail the run.
func (o *Orchestrator) Run(ctx context.Context, query, mode string) (models.RunStatistics, error) {
	switch mode {
	case ModeLocal, ModeRemote, ModeHybrid:
	case "":
		mode = ModeHybrid
	default:
		return models.RunStatistics{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	started := o.clock.Now()
	stats := models.RunStatistics{Query: query, Mode: mode}

	slog.Info("[Orchestrator] Stage started",
		slog.String("stage", stageRetrieve), slog.String("query", query))
	items := o.retriever.Retrieve(ctx, query)
	stats.ItemsRetrieved = len(items)

	if len(items) == 0 {
		slog.Info("[Orchestrator] Nothing retrieved, run complete",
			slog.String("query", query))
		stats.Elapsed = o.clock.Since(started)
		return stats, nil
	}

	slog.Info("[Orchestrator] Stage started",
		slog.String("stage", stageAnalyze),
		slog.String("mode", mode),
		slog.Int("items", len(items)))

	buffer := utils.NewBatchBuffer[models.SentimentRecord]()
	var remoteAttempts, remoteResults, localResults atomic.Int64

	// Routing indices span every retrieved item: an empty-text item
	// keeps its sampling slot even though it is dropped before dispatch.
	var wg sync.WaitGroup
	for i, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		wg.Add(1)
		go func(index int, item models.RawItem) {
			defer wg.Done()

			tier := o.resolveTier(mode, item.Text, index, len(items))

			var result models.AnalysisResult
			if tier == analysis.TierRemote {
				remoteAttempts.Add(1)
				remoteResult, err := o.remote.Analyze(ctx, item.Text)
				if err != nil {
					slog.Warn("[Orchestrator] Remote analysis failed, falling back to local tier",
						slog.Int("index", index),
						slog.String("error", err.Error()))
					result = o.local.BasicAnalysis(item.Text)
					localResults.Add(1)
				} else {
					result = remoteResult
					remoteResults.Add(1)
				}
			} else {
				result = o.local.BasicAnalysis(item.Text)
				localResults.Add(1)
			}

			buffer.Add(models.SentimentRecord{
				ID:        uuid.NewString(),
				Query:     query,
				Text:      item.Text,
				Source:    item.Source,
				Timestamp: o.recordTimestamp(item),
				Analysis:  result,
			})
		}(i, item)
	}
	wg.Wait()

	stats.RemoteAttempts = int(remoteAttempts.Load())
	stats.RemoteResults = int(remoteResults.Load())
	stats.LocalResults = int(localResults.Load())
	stats.Reduction = 1 - float64(stats.RemoteAttempts)/float64(stats.ItemsRetrieved)

	records := buffer.Drain()
	slog.Info("[Orchestrator] Stage started",
		slog.String("stage", stagePersist), slog.Int("records", len(records)))

	if err := o.store.BulkInsert(ctx, records); err != nil {
		return stats, fmt.Errorf("persisting records for %q: %w", query, err)
	}
	stats.ItemsPersisted = len(records)

	if o.publisher != nil {
		if err := o.publisher.PublishRecords(records); err != nil {
			slog.Warn("[Orchestrator] Event publishing incomplete",
				slog.String("error", err.Error()))
		}
	}

	stats.Elapsed = o.clock.Since(started)
	slog.Info("[Orchestrator] Stage started",
		slog.String("stage", stageComplete),
		slog.String("query", query),
		slog.Int("persisted", stats.ItemsPersisted),
		slog.Int("remote_attempts", stats.RemoteAttempts),
		slog.Int("local_results", stats.LocalResults),
		slog.Float64("reduction", stats.Reduction),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

func (o *Orchestrator) resolveTier(mode, text string, index, total int) analysis.Tier {
	switch mode {
	case ModeLocal:
		return analysis.TierLocal
	case ModeRemote:
		if o.remote.Enabled() {
			return analysis.TierRemote
		}
		return analysis.TierLocal
	default:
		if !o.remote.Enabled() {
			return analysis.TierLocal
		}
		return analysis.Route(text, index, total)
	}
}

func (o *Orchestrator) recordTimestamp(item models.RawItem) time.Time {
	if !item.Timestamp.IsZero() {
		return item.Timestamp.UTC()
	}
	return o.clock.Now().UTC()
}

// Submit starts a detached run and returns immediately. At-most-once:
// a failed run logs and is not retried. The returned context cancel is
// managed internally; callers cannot observe the run beyond the logs.
func (o *Orchestrator) Submit(query, mode string) {
	go func() {
		stats, err := o.Run(context.Background(), query, mode)
		if err != nil {
			slog.Error("[Orchestrator] Detached run failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			return
		}
		slog.Info("[Orchestrator] Detached run complete",
			slog.String("query", query),
			slog.Int("persisted", stats.ItemsPersisted))
	}()
}

// RunWithSummary runs the query, then summarizes the most recent
// records grouped by sentiment class. Summaries never fail; a run
// error skips the summary stage.
func (o *Orchestrator) RunWithSummary(ctx context.Context, query, mode string) (models.RunStatistics, map[string]models.SummaryData, error) {
	stats, err := o.Run(ctx, query, mode)
	if err != nil {
		return stats, nil, err
	}

	recent, err := o.store.Recent(ctx, query, summaryRecentLimit)
	if err != nil {
		slog.Error("[Orchestrator] Failed to load records for summary",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return stats, map[string]models.SummaryData{}, nil
	}

	grouped := make(map[string][]string)
	for _, record := range recent {
		label := record.Analysis.Sentiment
		if !models.ValidSentiment(label) {
			label = models.SentimentNeutral
		}
		grouped[label] = append(grouped[label], record.Text)
	}

	summaries := make(map[string]models.SummaryData, len(grouped))
	for label, documents := range grouped {
		summaries[label] = o.remote.StructuredSummary(ctx, documents, label)
	}
	return stats, summaries, nil
}
