package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opiniq/sentilens/internal/models"
)

const DefaultMaxPerSource = 25

// DedupeStore remembers which items earlier runs already retrieved.
// Implementations must treat their own failures as "unseen"; losing
// dedupe is acceptable, losing items is not.
type DedupeStore interface {
	IsSeen(ctx context.Context, source, key string) bool
	MarkSeen(ctx context.Context, source, key string) error
}

// Aggregator fans a query out to every configured source concurrently
// and merges the results. A failing source contributes nothing; it
// never fails the retrieval as a whole.
type Aggregator struct {
	sources      []Source
	dedupe       DedupeStore
	maxPerSource int
}

func NewAggregator(sources []Source, dedupe DedupeStore, maxPerSource int) *Aggregator {
	if maxPerSource <= 0 {
		maxPerSource = DefaultMaxPerSource
	}
	return &Aggregator{
		sources:      sources,
		dedupe:       dedupe,
		maxPerSource: maxPerSource,
	}
}

// Retrieve collects raw items for the query from all sources. Items
// seen in a prior run are filtered out when a dedupe store is
// configured. Never returns an error: an empty result is a valid
// outcome the pipeline handles downstream.
func (a *Aggregator) Retrieve(ctx context.Context, query string) []models.RawItem {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	merged := make([]models.RawItem, 0, len(a.sources)*a.maxPerSource)

	for _, source := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			items, err := src.Fetch(ctx, query, a.maxPerSource)
			if err != nil {
				slog.Error("[Aggregator] Source fetch failed",
					slog.String("source", src.Name()),
					slog.String("query", query),
					slog.String("error", err.Error()))
				return
			}

			fresh := a.filterSeen(ctx, src.Name(), items)
			slog.Info("[Aggregator] Source fetch complete",
				slog.String("source", src.Name()),
				slog.Int("fetched", len(items)),
				slog.Int("fresh", len(fresh)))

			mu.Lock()
			merged = append(merged, fresh...)
			mu.Unlock()
		}(source)
	}
	wg.Wait()

	return merged
}

func (a *Aggregator) filterSeen(ctx context.Context, sourceName string, items []models.RawItem) []models.RawItem {
	if a.dedupe == nil {
		return items
	}

	fresh := make([]models.RawItem, 0, len(items))
	for _, item := range items {
		key := contentKey(item.Source, item.Text)
		if a.dedupe.IsSeen(ctx, sourceName, key) {
			continue
		}
		if err := a.dedupe.MarkSeen(ctx, sourceName, key); err != nil {
			slog.Warn("[Aggregator] Failed to mark item as seen",
				slog.String("source", sourceName),
				slog.String("error", err.Error()))
		}
		fresh = append(fresh, item)
	}
	return fresh
}
