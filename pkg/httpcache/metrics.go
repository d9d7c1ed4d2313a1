package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResponseCacheHits tracks served cache hits by kind: "full" for a
	// reconstructed response, "revalidated" for a bodyless 304.
	ResponseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbi_response_cache_hits_total",
			Help: "Total number of responses served from cache",
		},
		[]string{"kind"}, // "full", "revalidated"
	)

	// ResponseCacheMisses tracks lookups that fell through to the handler.
	ResponseCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbi_response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// ResponseCacheStores tracks responses persisted after a miss.
	ResponseCacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbi_response_cache_stores_total",
			Help: "Total number of responses stored in the cache",
		},
	)

	// ResponseCacheStoreErrors tracks failed background store attempts.
	ResponseCacheStoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbi_response_cache_store_errors_total",
			Help: "Total number of failed response cache stores",
		},
	)

	// RequestDuration observes wrapped-handler latency by route, giving
	// before/after visibility into what caching saves.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rbi_request_duration_seconds",
			Help:    "Request duration in seconds by route",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route"},
	)
)
