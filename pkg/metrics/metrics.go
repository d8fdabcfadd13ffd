// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocsIndexedTotal     *prometheus.CounterVec
	IndexLatency         *prometheus.HistogramVec
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	MergeOperationsTotal *prometheus.CounterVec
	ShardDirectorySize   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CompactionsTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mboxsearch_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mboxsearch_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mboxsearch_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mboxsearch_docs_indexed_total",
				Help: "Total documents indexed, by mailbox.",
			},
			[]string{"mailbox"},
		),
		IndexLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mboxsearch_index_latency_seconds",
				Help:    "Latency of one index-writer commit.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mailbox"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mboxsearch_search_queries_total",
				Help: "Total search queries by cache outcome (hit, miss, bypass).",
			},
			[]string{"cache_status"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mboxsearch_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mboxsearch_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		MergeOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mboxsearch_merge_operations_total",
				Help: "Total merge-operator invocations by key prefix.",
			},
			[]string{"prefix"},
		),
		ShardDirectorySize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mboxsearch_shard_directory_size",
				Help:    "Number of live shards in a token's shard directory at merge time.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"prefix"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mboxsearch_cache_hits_total",
				Help: "Total number of search result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mboxsearch_cache_misses_total",
				Help: "Total number of search result cache misses.",
			},
		),
		CompactionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mboxsearch_compactions_total",
				Help: "Total number of full-range compactions triggered.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mboxsearch_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsIndexedTotal,
		m.IndexLatency,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.MergeOperationsTotal,
		m.ShardDirectorySize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CompactionsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
