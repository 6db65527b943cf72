package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opiniq/sentilens/internal/models"
)

// Named windows a view can be computed over.
const (
	WindowHour = "1h"
	WindowDay  = "24h"
	WindowWeek = "7d"

	DefaultWindow = WindowDay

	wordCloudLimit = 50
)

var windowDurations = map[string]time.Duration{
	WindowHour: time.Hour,
	WindowDay:  24 * time.Hour,
	WindowWeek: 7 * 24 * time.Hour,
}

// ResolveWindow maps a window name to its duration, falling back to the
// default for anything unrecognized.
func ResolveWindow(name string) (string, time.Duration) {
	if d, ok := windowDurations[name]; ok {
		return name, d
	}
	return DefaultWindow, windowDurations[DefaultWindow]
}

// RecordSource provides the records a view is computed from. Views are
// always computed on read; nothing is precomputed at write time.
type RecordSource interface {
	RecordsInWindow(ctx context.Context, query string, from, to time.Time) ([]models.SentimentRecord, error)
}

type Aggregator struct {
	source RecordSource
}

func NewAggregator(source RecordSource) *Aggregator {
	return &Aggregator{source: source}
}

func (a *Aggregator) recordsFor(ctx context.Context, query, window string, now time.Time) ([]models.SentimentRecord, error) {
	_, duration := ResolveWindow(window)
	records, err := a.source.RecordsInWindow(ctx, query, now.Add(-duration), now)
	if err != nil {
		return nil, fmt.Errorf("loading records for %q: %w", query, err)
	}
	return records, nil
}

// Distribution counts records per sentiment class in the window. An
// empty window yields all-zero counts, not an error.
func (a *Aggregator) Distribution(ctx context.Context, query, window string, now time.Time) (models.SentimentDistribution, error) {
	records, err := a.recordsFor(ctx, query, window, now)
	if err != nil {
		return models.SentimentDistribution{}, err
	}

	var dist models.SentimentDistribution
	for _, record := range records {
		switch record.Analysis.Sentiment {
		case models.SentimentPositive:
			dist.Positive++
		case models.SentimentNegative:
			dist.Negative++
		default:
			dist.Neutral++
		}
	}
	dist.Total = len(records)
	return dist, nil
}

// bucketKey truncates a timestamp to the bucket granularity for the
// window: minutes for the one-hour window, hours otherwise.
func bucketKey(ts time.Time, window string) time.Time {
	if window == WindowHour {
		return ts.UTC().Truncate(time.Minute)
	}
	return ts.UTC().Truncate(time.Hour)
}

func bucketStep(window string) time.Duration {
	if window == WindowHour {
		return time.Minute
	}
	return time.Hour
}

func bucketLabel(ts time.Time, window string) string {
	if window == WindowHour {
		return ts.UTC().Format("2006-01-02T15:04:00Z")
	}
	return ts.UTC().Format("2006-01-02T15:00:00Z")
}

// Trend groups the window's records into contiguous time buckets with
// per-class counts. Empty buckets between the first and last occupied
// bucket are zero-filled so consumers can plot without gap handling.
func (a *Aggregator) Trend(ctx context.Context, query, window string, now time.Time) ([]models.TrendBucket, error) {
	window, _ = ResolveWindow(window)
	records, err := a.recordsFor(ctx, query, window, now)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []models.TrendBucket{}, nil
	}

	counts := make(map[time.Time]*models.TrendBucket)
	var first, last time.Time
	for _, record := range records {
		key := bucketKey(record.Timestamp, window)
		if first.IsZero() || key.Before(first) {
			first = key
		}
		if key.After(last) {
			last = key
		}

		bucket, ok := counts[key]
		if !ok {
			bucket = &models.TrendBucket{Bucket: bucketLabel(key, window)}
			counts[key] = bucket
		}
		switch record.Analysis.Sentiment {
		case models.SentimentPositive:
			bucket.Positive++
		case models.SentimentNegative:
			bucket.Negative++
		default:
			bucket.Neutral++
		}
	}

	step := bucketStep(window)
	buckets := make([]models.TrendBucket, 0, int(last.Sub(first)/step)+1)
	for key := first; !key.After(last); key = key.Add(step) {
		if bucket, ok := counts[key]; ok {
			buckets = append(buckets, *bucket)
		} else {
			buckets = append(buckets, models.TrendBucket{Bucket: bucketLabel(key, window)})
		}
	}
	return buckets, nil
}

// WordCloud counts occurrences per extracted aspect name across the
// window's records, descending by count, capped at 50 entries. Records
// analyzed on the local tier carry no aspects and contribute nothing.
func (a *Aggregator) WordCloud(ctx context.Context, query, window string, now time.Time) ([]models.WordCloudEntry, error) {
	records, err := a.recordsFor(ctx, query, window, now)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, record := range records {
		for _, aspect := range record.Analysis.Aspects {
			name := strings.ToLower(strings.TrimSpace(aspect.Aspect))
			if name == "" {
				continue
			}
			counts[name]++
		}
	}

	entries := make([]models.WordCloudEntry, 0, len(counts))
	for word, count := range counts {
		entries = append(entries, models.WordCloudEntry{Text: word, Value: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Text < entries[j].Text
	})

	if len(entries) > wordCloudLimit {
		entries = entries[:wordCloudLimit]
	}
	return entries, nil
}

// Compare computes trends for several subjects concurrently. Output
// order matches input order. A subject whose trend fails contributes an
// empty trend; the comparison itself never fails.
func (a *Aggregator) Compare(ctx context.Context, subjects []string, window string, now time.Time) []models.SubjectTrend {
	results := make([]models.SubjectTrend, len(subjects))

	var wg sync.WaitGroup
	for i, subject := range subjects {
		wg.Add(1)
		go func(index int, subject string) {
			defer wg.Done()

			trend, err := a.Trend(ctx, subject, window, now)
			if err != nil {
				slog.Error("[Aggregator] Trend failed for subject",
					slog.String("subject", subject),
					slog.String("error", err.Error()))
				trend = []models.TrendBucket{}
			}
			results[index] = models.SubjectTrend{Subject: subject, Trends: trend}
		}(i, subject)
	}
	wg.Wait()

	return results
}
