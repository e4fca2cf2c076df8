// Command corpusindex runs the offline indexing pipeline: it consumes a
// cleaned-document stream (a local JSONL file by default, or a Kafka
// topic) and produces a complete on-disk index directory (barrels,
// lexicon, docID map, forward index, document metadata, and the
// autocomplete index).
//
// Usage:
//
//	corpusindex -config configs/development.yaml -input cleaned.jsonl
//	corpusindex -config configs/development.yaml -kafka
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corpussearch/engine/internal/cleanedstream"
	"github.com/corpussearch/engine/internal/index"
	"github.com/corpussearch/engine/internal/metadata"
	"github.com/corpussearch/engine/pkg/config"
	appkafka "github.com/corpussearch/engine/pkg/kafka"
	"github.com/corpussearch/engine/pkg/logger"
	"github.com/corpussearch/engine/pkg/metrics"
	"github.com/corpussearch/engine/pkg/postgres"
	"github.com/prometheus/client_golang/prometheus/push"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	inputPath := flag.String("input", "", "path to a cleaned-document JSONL file")
	useKafka := flag.Bool("kafka", false, "consume cleaned documents from Kafka instead of a local file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting corpusindex",
		"out_dir", cfg.Indexer.OutDir,
		"shard_count", cfg.Indexer.ShardCount,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metaSrc metadata.Source = metadata.Inline{}
	if cfg.Postgres.MetadataQuery != "" {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		metaSrc = metadata.NewPostgres(db, cfg.Postgres.MetadataQuery, cfg.Postgres.LookupTimeout)
		slog.Info("connected to postgres for metadata lookups")
	}

	reader, closeReader, err := openReader(ctx, cfg, *useKafka, *inputPath)
	if err != nil {
		slog.Error("failed to open cleaned-document stream", "error", err)
		os.Exit(1)
	}
	if closeReader != nil {
		defer closeReader()
	}

	m := metrics.New()
	result, err := index.Build(index.BuildConfig{
		OutDir:             cfg.Indexer.OutDir,
		FlushBudgetBytes:   cfg.Indexer.FlushBudgetBytes,
		ShardCount:         cfg.Indexer.ShardCount,
		DropAllDigitTokens: cfg.Indexer.DropAllDigitTokens,
		AutocompleteTopK:   cfg.Autocomplete.TopKPerPrefix,
		Metrics:            m,
	}, reader, metaSrc)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	slog.Info("corpusindex complete",
		"docs", result.NDocs,
		"terms", result.NTerms,
		"blocks", result.NBlocks,
		"malformed", result.Malformed,
	)

	pushMetrics(cfg.Metrics, m)
	announceBuild(ctx, cfg.Kafka, cfg.Indexer.OutDir, result)
}

// pushMetrics pushes the one-shot build's metrics to a Pushgateway,
// since corpusindex exits before anything could scrape it. A disabled
// or unconfigured Pushgateway is silently skipped.
func pushMetrics(cfg config.MetricsConfig, m *metrics.Metrics) {
	if !cfg.Enabled || cfg.PushGatewayURL == "" {
		return
	}
	err := push.New(cfg.PushGatewayURL, cfg.Job).
		Collector(m.DocsIndexedTotal).
		Collector(m.BlocksFlushedTotal).
		Collector(m.MergeDuration).
		Collector(m.MergedTermsTotal).
		Grouping("instance", cfg.Job).
		Push()
	if err != nil {
		slog.Warn("failed to push build metrics", "url", cfg.PushGatewayURL, "error", err)
	}
}

// announceBuild publishes a build-completion event so a long-lived
// corpusquery instance can watch the topic and reload from the new
// index directory. A missing topic disables the announcement entirely.
func announceBuild(ctx context.Context, cfg config.KafkaConfig, outDir string, result index.BuildResult) {
	if cfg.BuildEvents == "" {
		return
	}
	producer := appkafka.NewProducer(cfg, cfg.BuildEvents)
	defer producer.Close()

	err := producer.Publish(ctx, appkafka.Event{
		Key: outDir,
		Value: map[string]any{
			"out_dir": outDir,
			"docs":    result.NDocs,
			"terms":   result.NTerms,
			"blocks":  result.NBlocks,
		},
	})
	if err != nil {
		slog.Warn("failed to announce build completion", "topic", cfg.BuildEvents, "error", err)
	}
}

func openReader(ctx context.Context, cfg *config.Config, useKafka bool, inputPath string) (index.RecordReader, func(), error) {
	if useKafka {
		kr := cleanedstream.NewKafkaReader(ctx, cfg.Kafka, cfg.Kafka.CleanedDocs)
		return kr, func() { _ = kr.Close() }, nil
	}
	if inputPath == "" {
		return nil, nil, fmt.Errorf("either -input or -kafka must be given")
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", inputPath, err)
	}
	jr := cleanedstream.NewJSONLReader(f)
	return jr, func() { f.Close() }, nil
}
