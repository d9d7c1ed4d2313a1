// Package httpcache caches whole HTTP responses for the RBI API.
//
// It layers on top of the cache.Manager and adds the HTTP-specific
// pieces:
//
//   - Cache key derivation from method, path, query, configured vary-by
//     request headers and a hashed Authorization header, so per-user
//     responses partition the cache without storing the credential.
//   - ETag generation and If-None-Match revalidation (bodyless 304s).
//   - Cacheability gating by method, status code and deployment
//     environment (disabled outside production unless explicitly
//     enabled for development).
//   - Middleware composition for route handlers, with fire-and-forget
//     cache population so storing a response never delays serving it.
//
// # Usage
//
//	rc := httpcache.New(manager, cfg)
//
//	router.Handle("/api/dashboard",
//		rc.Middleware(httpcache.PresetDashboard)(dashboardHandler))
//
// After a write to the registry, drop the affected listings:
//
//	rc.Invalidate(ctx, "api_residents")
//
// # Headers
//
// Emitted: X-Cache (HIT or MISS), X-Cache-Age (seconds, hits only),
// ETag, Cache-Control: public, max-age=<n>.
// Consumed: Authorization, If-None-Match and any configured vary-by
// headers.
//
// # Consistency
//
// With the in-memory backend each API instance holds an independent
// cache: invalidation only affects the instance that receives it, and
// concurrent misses for the same key each run the wrapped handler.
// Deployments that need shared state or coalescing should use the
// Redis backend.
package httpcache
