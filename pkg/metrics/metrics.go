// Package metrics defines the Prometheus metric collectors used across
// the indexing and query services and exposes an HTTP handler for
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the core exposes.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        *prometheus.HistogramVec
	QueryResultsCount   prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	AutocompleteTotal   prometheus.Counter
	AutocompleteLatency prometheus.Histogram

	DocsIndexedTotal   prometheus.Counter
	BlocksFlushedTotal prometheus.Counter
	MergeDuration      prometheus.Histogram
	MergedTermsTotal   prometheus.Counter
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_total",
				Help: "Total queries executed by mode (or, and, phrase) and outcome (ok, deadline, error).",
			},
			[]string{"mode", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "query_results_count",
				Help:    "Number of hits returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total query cache misses.",
			},
		),
		AutocompleteTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autocomplete_queries_total",
				Help: "Total autocomplete suggestion requests.",
			},
		),
		AutocompleteLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_latency_seconds",
				Help:    "Autocomplete suggestion latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to the SPIMI builder.",
			},
		),
		BlocksFlushedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocks_flushed_total",
				Help: "Total SPIMI blocks flushed to disk.",
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "Duration of the external k-way merge across all blocks.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		MergedTermsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "merged_terms_total",
				Help: "Total distinct terms written to the merged lexicon by the most recent build.",
			},
		),
	}

	prometheus.MustRegister(
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AutocompleteTotal,
		m.AutocompleteLatency,
		m.DocsIndexedTotal,
		m.BlocksFlushedTotal,
		m.MergeDuration,
		m.MergedTermsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
