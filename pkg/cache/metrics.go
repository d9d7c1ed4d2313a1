package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend labels for cache metrics.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by backend.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbi_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by backend.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbi_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheExpirations tracks entries dropped because they were read
	// after their TTL elapsed.
	CacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbi_cache_expirations_total",
			Help: "Total number of entries removed on expired access",
		},
	)

	// CacheEvictions tracks entries dropped by the capacity eviction pass.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbi_cache_evictions_total",
			Help: "Total number of entries removed by capacity eviction",
		},
	)

	// CacheEntries tracks the current entry count by backend.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rbi_cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"backend"},
	)

	// CacheMemoryBytes tracks the estimated cache memory usage by backend.
	CacheMemoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rbi_cache_memory_bytes",
			Help: "Estimated memory used by cached entries",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "keys", "flush"
	)
)
