// Package metrics provides the centralized Prometheus metrics registry
// for the RBI API cache service. All metrics are defined in their
// respective packages (cache, httpcache, ratelimit) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - rbi_cache_hits_total{backend} (Counter): Cache hits by backend (memory, redis)
//   - rbi_cache_misses_total{backend} (Counter): Cache misses by backend
//   - rbi_cache_expirations_total (Counter): Entries removed on expired access
//   - rbi_cache_evictions_total (Counter): Entries removed by capacity eviction
//   - rbi_cache_entries{backend} (Gauge): Current entry count
//   - rbi_cache_memory_bytes{backend} (Gauge): Estimated memory usage
//   - rbi_cache_errors_total{operation} (Counter): Backend operation errors
//
// Response Cache Metrics (pkg/httpcache):
//   - rbi_response_cache_hits_total{kind} (Counter): Hits by kind (full, revalidated)
//   - rbi_response_cache_misses_total (Counter): Lookups that ran the handler
//   - rbi_response_cache_stores_total (Counter): Responses persisted after a miss
//   - rbi_response_cache_store_errors_total (Counter): Failed background stores
//   - rbi_request_duration_seconds{route} (Histogram): Wrapped-handler latency
//
// Rate Limit Metrics (pkg/ratelimit):
//   - rbi_rate_limit_rejections_total (Counter): Requests rejected with 429
//   - rbi_rate_limit_clients (Gauge): Client windows currently tracked
//
// Example Prometheus Queries:
//
//   # Response Cache Hit Rate
//   sum(rate(rbi_response_cache_hits_total[5m])) /
//   (sum(rate(rbi_response_cache_hits_total[5m])) + sum(rate(rbi_response_cache_misses_total[5m])))
//
//   # Revalidation (304) Share of Hits
//   rate(rbi_response_cache_hits_total{kind="revalidated"}[5m]) /
//   sum(rate(rbi_response_cache_hits_total[5m]))
//
//   # P95 Request Latency per Route
//   histogram_quantile(0.95, rate(rbi_request_duration_seconds_bucket[5m]))
//
//   # Cache Memory Pressure
//   rbi_cache_memory_bytes{backend="memory"}
//
//   # Rejection Rate
//   rate(rbi_rate_limit_rejections_total[5m])
