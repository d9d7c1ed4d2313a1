package httpcache

import (
	"bytes"
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Middleware wraps a handler with read-through response caching under
// cfg. On a hit the stored response is served immediately. On a miss
// the handler runs against a recorder, the response is emitted with
// X-Cache: MISS, ETag and Cache-Control set, and the cache is
// populated by a detached goroutine so storing never delays the reply.
//
// The first caller after expiry always pays full handler latency, and
// concurrent misses for the same key each run the handler; there is no
// coalescing of in-flight requests.
func (rc *ResponseCache) Middleware(cfg Config) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := prometheus.NewTimer(RequestDuration.WithLabelValues(r.URL.Path))
			defer timer.ObserveDuration()

			if lookup := rc.GetCachedResponse(r, cfg); lookup != nil {
				writeLookup(w, lookup)
				return
			}

			rec := newRecorder(w)
			next.ServeHTTP(rec, r)
			body := rec.body.Bytes()

			if rc.ShouldCache(r, rec.status, cfg) {
				etag := ETagFor(body)
				w.Header().Set(HeaderETag, etag)
				w.Header().Set(HeaderXCache, "MISS")
				w.Header().Set(HeaderCacheControl, maxAge(int(cfg.TTL.Seconds())))

				// Key and headers are captured before the goroutine:
				// the request must not be touched after the handler
				// returns.
				key := CacheKey(r, cfg.VaryHeaders)
				header := w.Header().Clone()
				status := rec.status
				ctx := context.WithoutCancel(r.Context())

				go func() {
					defer func() {
						if p := recover(); p != nil {
							ResponseCacheStoreErrors.Inc()
							rc.logger.Error().
								Interface("panic", p).
								Str("key", key).
								Msg("Response cache store panicked")
						}
					}()
					rc.CacheResponse(ctx, key, cfg, status, header, body, etag)
				}()
			}

			rec.flush()
		})
	}
}

// writeLookup emits a cache hit to the client.
func writeLookup(w http.ResponseWriter, lookup *Lookup) {
	for name, values := range lookup.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(lookup.Status)
	if !lookup.NotModified && len(lookup.Body) > 0 {
		_, _ = w.Write(lookup.Body)
	}
}

// recorder captures a handler's response without forwarding it, so the
// middleware can inspect status and body before anything reaches the
// client. Header writes go straight to the underlying writer's header
// map, which is safe because nothing is sent until flush.
type recorder struct {
	w      http.ResponseWriter
	status int
	body   bytes.Buffer
	wrote  bool
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{w: w, status: http.StatusOK}
}

func (r *recorder) Header() http.Header {
	return r.w.Header()
}

func (r *recorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.wrote = true
	r.status = status
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(p)
}

// flush forwards the captured status and body to the client.
func (r *recorder) flush() {
	r.w.WriteHeader(r.status)
	if r.body.Len() > 0 {
		_, _ = r.w.Write(r.body.Bytes())
	}
}
