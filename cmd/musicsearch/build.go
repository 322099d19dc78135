package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog/source"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/metrics"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the songs and albums indexes from the configured record source.",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.Open(appCfg)
	if err != nil {
		return err
	}
	defer src.Close()

	slog.Info("starting index build",
		"source", appCfg.Source.Kind,
		"data_dir", appCfg.Indexer.DataDir,
	)
	pipeline := indexer.NewPipeline(appCfg.Indexer.DataDir, metrics.New(nil))
	results, err := pipeline.BuildAll(ctx, src)
	if err != nil {
		slog.Error("index build failed", "error", err)
		return err
	}

	if appCfg.Kafka.Enabled {
		announceBuilds(ctx, results)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func announceBuilds(ctx context.Context, results []indexer.BuildStats) {
	producer := kafka.NewProducer(appCfg.Kafka, appCfg.Kafka.Topics.BuildComplete)
	defer producer.Close()

	for _, r := range results {
		err := analytics.PublishBuild(ctx, producer, analytics.BuildEvent{
			Corpus:     r.Corpus,
			BuildID:    r.BuildID,
			Indexed:    r.Indexed,
			Skipped:    r.Skipped,
			Unmatched:  r.Unmatched,
			DurationMs: r.Duration.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
		if err != nil {
			slog.Warn("failed to announce build", "corpus", r.Corpus, "error", err)
		}
	}
}
