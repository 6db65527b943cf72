package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/opiniq/sentilens/config"
	"github.com/opiniq/sentilens/internal/aggregation"
	"github.com/opiniq/sentilens/internal/analysis"
	"github.com/opiniq/sentilens/internal/clients"
	"github.com/opiniq/sentilens/internal/db"
	"github.com/opiniq/sentilens/internal/events"
	"github.com/opiniq/sentilens/internal/logging"
	"github.com/opiniq/sentilens/internal/pipeline"
	"github.com/opiniq/sentilens/internal/retrieval"
)

func main() {
	query := flag.String("query", "", "subject to analyze")
	mode := flag.String("mode", pipeline.ModeHybrid, "analysis mode: local, remote, or hybrid")
	subjects := flag.String("subjects", "", "comma-separated subjects to compare")
	window := flag.String("window", aggregation.DefaultWindow, "aggregation window: 1h, 24h, or 7d")
	withSummary := flag.Bool("summary", false, "generate structured summaries after the run")
	cleanupDays := flag.Int("cleanup-days", 0, "delete records older than this many days and exit")
	maxPerSource := flag.Int("max-per-source", retrieval.DefaultMaxPerSource, "items fetched per retrieval source")
	detach := flag.Bool("detach", false, "start the run and exit without waiting")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	if *query == "" && *subjects == "" {
		fmt.Fprintln(os.Stderr, "usage: sentilens -query <subject> [-mode hybrid] [-summary] or -subjects <a,b,c>")
		os.Exit(2)
	}

	ctx := context.Background()
	store := db.NewSentimentStore(clients.GetDynamoDBClient(), os.Getenv("SENTIMENT_TABLE"))

	if *cleanupDays > 0 {
		deleted, err := runCleanup(ctx, store, *query, *cleanupDays)
		if err != nil {
			slog.Error("Cleanup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("Cleanup complete", slog.Int("deleted", deleted))
		return
	}

	if *subjects != "" {
		runComparison(ctx, store, *subjects, *window)
		return
	}

	orchestrator := buildOrchestrator(store, *maxPerSource)

	if *detach {
		orchestrator.Submit(*query, *mode)
		slog.Info("Run submitted", slog.String("query", *query))
		return
	}

	if *withSummary {
		stats, summaries, err := orchestrator.RunWithSummary(ctx, *query, *mode)
		if err != nil {
			slog.Error("Run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		printJSON(map[string]any{"stats": stats, "summaries": summaries})
		return
	}

	stats, err := orchestrator.Run(ctx, *query, *mode)
	if err != nil {
		slog.Error("Run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	views, err := buildViews(ctx, store, *query, *window)
	if err != nil {
		slog.Error("Aggregation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	printJSON(map[string]any{"stats": stats, "views": views})
}

// runCleanup deletes records for the query older than the retention
// cutoff. Cleanup is per-query; it refuses to run without one.
func runCleanup(ctx context.Context, store *db.SentimentStore, query string, days int) (int, error) {
	if query == "" {
		return 0, errors.New("cleanup requires -query")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return store.DeleteOlderThan(ctx, query, cutoff)
}

func buildOrchestrator(store *db.SentimentStore, maxPerSource int) *pipeline.Orchestrator {
	var sources []retrieval.Source
	if reddit := clients.GetRedditClient(); reddit != nil {
		sources = append(sources, retrieval.NewRedditSource(reddit))
	}
	if os.Getenv("NEWS_API_KEY") != "" {
		sources = append(sources, retrieval.NewNewsSource(clients.GetNewsAPIClient()))
	}

	var dedupe retrieval.DedupeStore
	if vc := clients.InitValkey(); vc != nil {
		dedupe = vc
	}
	retriever := retrieval.NewAggregator(sources, dedupe, maxPerSource)

	local := analysis.NewLocalEngine(clients.GetSummarizerClient())
	governor := analysis.NewGovernor(analysis.DefaultRemoteConcurrency)
	remote := analysis.NewRemoteEngine(clients.GetOpenAIClient(), local, governor)

	var publisher pipeline.BatchPublisher
	if p := events.NewPublisher(); p != nil {
		publisher = p
	}

	return pipeline.NewOrchestrator(retriever, local, remote, store, publisher)
}

func buildViews(ctx context.Context, store *db.SentimentStore, query, window string) (map[string]any, error) {
	aggregator := aggregation.NewAggregator(store)
	now := time.Now().UTC()

	distribution, err := aggregator.Distribution(ctx, query, window, now)
	if err != nil {
		return nil, err
	}
	trend, err := aggregator.Trend(ctx, query, window, now)
	if err != nil {
		return nil, err
	}
	wordCloud, err := aggregator.WordCloud(ctx, query, window, now)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"distribution": distribution,
		"trend":        trend,
		"word_cloud":   wordCloud,
	}, nil
}

func runComparison(ctx context.Context, store *db.SentimentStore, subjects, window string) {
	var parsed []string
	for _, subject := range strings.Split(subjects, ",") {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			parsed = append(parsed, trimmed)
		}
	}
	if len(parsed) == 0 {
		fmt.Fprintln(os.Stderr, "no subjects to compare")
		os.Exit(2)
	}

	aggregator := aggregation.NewAggregator(store)
	comparison := aggregator.Compare(ctx, parsed, window, time.Now().UTC())
	printJSON(map[string]any{"comparison": comparison})
}

func printJSON(payload any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		slog.Error("Failed to encode output", slog.String("error", err.Error()))
	}
}
