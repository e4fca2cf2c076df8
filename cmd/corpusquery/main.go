// Command corpusquery opens a completed index directory and serves
// queries against it: an interactive stdin REPL for ad hoc search and
// autocomplete, plus a background /metrics endpoint for scraping.
//
// Usage:
//
//	corpusquery -config configs/development.yaml -index ./data/index
//
// REPL commands:
//
//	or <term> [term...]
//	and <term> [term...]
//	phrase <term> [term...]
//	ac <prefix>
//	stats
//	quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/corpussearch/engine/internal/index"
	"github.com/corpussearch/engine/internal/query"
	"github.com/corpussearch/engine/pkg/config"
	"github.com/corpussearch/engine/pkg/logger"
	"github.com/corpussearch/engine/pkg/metrics"
	appredis "github.com/corpussearch/engine/pkg/redis"
	"github.com/corpussearch/engine/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	indexDir := flag.String("index", "", "path to a completed index directory")
	shardCount := flag.Int("shards", 4, "number of shards the index was built with")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexDir == "" {
		fmt.Fprintln(os.Stderr, "error: -index is required")
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting corpusquery", "index", *indexDir, "shards", *shardCount)

	m := metrics.New()
	metricsShutdown := metrics.StartServer(cfg.Server.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var queryCache *query.Cache
	if cfg.Query.CacheEnabled {
		redisClient, err := appredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = query.NewCache(redisClient, cfg.Redis.CacheTTL)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	handle, err := index.Open(*indexDir, *shardCount, index.OpenOptions{
		ShardResidency: cfg.Query.ShardResidency,
		LRUMaxResident: cfg.Query.LRUMaxResidentShards,
		Ranker:         rankerFromConfig(cfg.Query),
		QueryCache:     queryCache,
	})
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	stats := handle.Stats()
	slog.Info("index opened", "docs", stats.NDocs, "terms", stats.NTerms, "avg_doc_len", stats.AvgDocLen)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}()

	repl(ctx, handle, cfg.Query.DefaultDeadline, cfg.Query.DefaultTopK, m, cfg.Tracing.Enabled)
	slog.Info("corpusquery stopped")
}

func rankerFromConfig(q config.QueryConfig) query.RankerConfig {
	return query.RankerConfig{
		K1:             q.K1,
		B:              q.B,
		TitleFrac:      q.TitleFrac,
		TitleBoost:     q.TitleBoost,
		AbstractFrac:   q.AbstractFrac,
		AbstractBoost:  q.AbstractBoost,
		BodyBoost:      q.BodyBoost,
		RecencyDecay:   q.RecencyDecay,
		RecencyWeight:  q.RecencyWeight,
		RecencyScale:   q.RecencyScale,
		CurrentYear:    time.Now().Year(),
		PhraseConstant: q.PhraseConstant,
	}
}

func repl(ctx context.Context, h *index.Handle, deadline time.Duration, topK int, m *metrics.Metrics, traceEnabled bool) {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Println("corpusquery ready. Commands: or|and|phrase <terms...>, ac <prefix>, stats, quit")
	var queryN int
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		var span *tracing.Span
		if traceEnabled && (cmd == "or" || cmd == "and" || cmd == "phrase" || cmd == "ac") {
			queryN++
			_, span = tracing.StartSpan(ctx, "repl."+cmd, fmt.Sprintf("q%d", queryN))
			span.SetAttr("args", args)
		}

		switch cmd {
		case "quit", "exit":
			return
		case "stats":
			s := h.Stats()
			fmt.Printf("docs=%d terms=%d avg_doc_len=%.2f shards=%d\n", s.NDocs, s.NTerms, s.AvgDocLen, s.NShards)
		case "ac":
			if len(args) != 1 {
				fmt.Println("usage: ac <prefix>")
				continue
			}
			runAutocomplete(h, args[0], m)
		case "or", "and", "phrase":
			if len(args) == 0 {
				fmt.Printf("usage: %s <term...>\n", cmd)
				continue
			}
			runSearch(h, cmd, args, deadline, topK, m)
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}

		if span != nil {
			span.End()
			span.Log()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func modeFor(cmd string) query.Mode {
	switch cmd {
	case "and":
		return query.ModeAND
	case "phrase":
		return query.ModePhrase
	default:
		return query.ModeOR
	}
}

func runSearch(h *index.Handle, cmd string, terms []string, deadline time.Duration, topK int, m *metrics.Metrics) {
	plan := query.Plan{Terms: terms, Mode: modeFor(cmd), TopK: topK}
	if deadline > 0 {
		plan.Deadline = time.Now().Add(deadline)
	}

	start := time.Now()
	resp, err := h.Search(plan)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		fmt.Printf("search error: %v\n", err)
	} else if resp.Deadline {
		outcome = "deadline"
	}
	m.QueriesTotal.WithLabelValues(cmd, outcome).Inc()
	m.QueryLatency.WithLabelValues("direct").Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.QueryResultsCount.Observe(float64(len(resp.Hits)))

	fmt.Printf("%d hits in %dms (truncated=%v deadline=%v)\n", len(resp.Hits), resp.TimeMs, resp.Truncated, resp.Deadline)
	for i, hit := range resp.Hits {
		fmt.Printf("  %d. %s  score=%.4f bm25=%.4f recency=%.4f\n", i+1, hit.DocKey, hit.Score, hit.BM25, hit.Recency)
	}
}

func runAutocomplete(h *index.Handle, prefix string, m *metrics.Metrics) {
	start := time.Now()
	hits := h.Autocomplete(prefix, 10)
	m.AutocompleteTotal.Inc()
	m.AutocompleteLatency.Observe(time.Since(start).Seconds())

	for i, hit := range hits {
		fmt.Printf("  %d. %s (df=%d popularity=%.4f)\n", i+1, hit.Term, hit.DocFreq, hit.Popularity)
	}
	if len(hits) == 0 {
		fmt.Println("  (no suggestions)")
	}
}
