// Package cache provides the key/value caching layer for the RBI API.
//
// The package is split into three pieces:
//
//   - Client: the backend contract (get/set/delete/exists/expire/keys/
//     flush/stats). Two implementations exist: MemoryStore, an in-process
//     map with lazy expiry and capacity eviction, and RedisStore for
//     deployments that need a shared cache.
//   - Manager: namespaces a Client under a fixed key prefix and adds
//     JSON-transparent helpers (Get into a destination value, GetOrSet,
//     pattern invalidation). The Manager converts backend failures into
//     boolean results so a broken cache can never fail a request.
//   - Entry: the stored unit (value bytes, insertion time, TTL).
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(1000)
//	manager := cache.NewManager(store, "rbi:")
//
//	ok := manager.Set(ctx, "dashboard:summary", summary, 2*time.Minute)
//
//	var cached DashboardSummary
//	if manager.Get(ctx, "dashboard:summary", &cached) {
//		// cache hit
//	}
//
// # Get-or-Compute
//
//	residents, err := cache.GetOrSet(ctx, manager, "residents:page:1",
//		time.Minute, func(ctx context.Context) ([]Resident, error) {
//			return repo.ListResidents(ctx, 1)
//		})
//
// # Invalidation
//
//	// Drop every cached resident listing after a write.
//	deleted := manager.InvalidatePattern(ctx, "residents:*")
//
// # Expiry and Eviction
//
// Entries expire lazily: an expired entry is removed when it is next
// read, never by a background sweep. Capacity eviction runs inline on
// Set once the store reaches its maximum entry count; it first drops
// all expired entries and then, if still at capacity, the oldest 20%
// by insertion time.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - rbi_cache_hits_total{backend} - cache hits
//   - rbi_cache_misses_total{backend} - cache misses
//   - rbi_cache_expirations_total - entries dropped on expired read
//   - rbi_cache_evictions_total - entries dropped by capacity eviction
//   - rbi_cache_entries{backend} - current entry count
//   - rbi_cache_memory_bytes{backend} - estimated memory usage
//   - rbi_cache_errors_total{operation} - backend operation errors
package cache
