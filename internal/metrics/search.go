// Package metrics defines the Prometheus instrumentation for the search
// service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and provider Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unicon",
			Name:      "search_requests_total",
			Help:      "Total number of search requests by resolved tier",
		},
		[]string{"type", "fallback"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unicon",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unicon",
			Name:      "cache_total",
			Help:      "Cache hits and misses per tier",
		},
		[]string{"cache", "result"}, // cache: embedding/expansion/results; result: hit/miss
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unicon",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unicon",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	ExpansionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unicon",
			Name:      "expansion_requests_total",
			Help:      "Total number of AI query expansion attempts",
		},
		[]string{"status"}, // success / error / timeout
	)
)

// RegisterSearchMetrics registers all search metrics with the default
// registry. Called once from the composition root; no init() so tests can
// use the vectors without global registration.
func RegisterSearchMetrics() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		CacheTotal,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		ExpansionRequestsTotal,
	)
}
