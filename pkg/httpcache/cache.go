package httpcache

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/barangaylink/rbi-cache/pkg/cache"
	"github.com/barangaylink/rbi-cache/pkg/logging"
)

// Cache-related header names.
const (
	HeaderXCache       = "X-Cache"
	HeaderXCacheAge    = "X-Cache-Age"
	HeaderETag         = "ETag"
	HeaderCacheControl = "Cache-Control"
	HeaderIfNoneMatch  = "If-None-Match"
)

// DefaultMethods are the request methods cached when a Config names none.
var DefaultMethods = []string{http.MethodGet, http.MethodHead}

// DefaultStatuses are the response status codes cached when a Config
// names none: success codes with stable bodies, all redirects, and 410
// so permanently removed records stay cheap to answer.
var DefaultStatuses = []int{
	http.StatusOK,
	http.StatusCreated,
	http.StatusNonAuthoritativeInfo,
	http.StatusMultipleChoices,
	http.StatusMovedPermanently,
	http.StatusFound,
	http.StatusSeeOther,
	http.StatusNotModified,
	http.StatusUseProxy,
	306, // reserved, kept so the allow-list spans 300-308
	http.StatusTemporaryRedirect,
	http.StatusPermanentRedirect,
	http.StatusGone,
}

// excludedHeaders never make it into a stored response.
var excludedHeaders = []string{"Set-Cookie", "Authorization", HeaderXCache}

// Config controls TTL and cacheability for one class of routes.
type Config struct {
	// TTL is how long a stored response stays servable.
	TTL time.Duration

	// Methods is the request-method allow-list. Empty means DefaultMethods.
	Methods []string

	// Statuses is the response-status allow-list. Empty means
	// DefaultStatuses.
	Statuses []int

	// VaryHeaders are request headers whose values partition the cache
	// key. Authorization is always folded in as a hash when present.
	VaryHeaders []string
}

// withDefaults fills the zero-value fields.
func (c Config) withDefaults() Config {
	if c.Methods == nil {
		c.Methods = DefaultMethods
	}
	if c.Statuses == nil {
		c.Statuses = DefaultStatuses
	}
	return c
}

// Environment gates caching by deployment stage. Caching is off outside
// production unless the development override is set, so stale data can
// never mask a bug during local work.
type Environment interface {
	IsProduction() bool
	DevCacheEnabled() bool
}

// CachedResponse is a stored HTTP response. A later store under the
// same key replaces it wholesale.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	ETag     string      `json:"etag"`
	StoredAt time.Time   `json:"stored_at"`
}

// Lookup is the outcome of a successful cache read: either a full
// stored response or a bodyless 304 when the client's ETag still
// matches.
type Lookup struct {
	Status      int
	Header      http.Header
	Body        []byte
	NotModified bool
}

// ResponseCache serves and stores whole HTTP responses through a
// cache.Manager.
type ResponseCache struct {
	manager *cache.Manager
	env     Environment
	logger  zerolog.Logger

	// now is the clock used for age and staleness checks. Tests
	// replace it to simulate time passing.
	now func() time.Time
}

// New creates a response cache over the given manager.
func New(manager *cache.Manager, env Environment) *ResponseCache {
	if manager == nil {
		panic("cache manager cannot be nil")
	}
	if env == nil {
		panic("environment cannot be nil")
	}
	return &ResponseCache{
		manager: manager,
		env:     env,
		logger:  logging.NewLogger("httpcache"),
		now:     time.Now,
	}
}

// SetClock replaces the cache's clock. Intended for tests.
func (rc *ResponseCache) SetClock(now func() time.Time) {
	rc.now = now
}

// ShouldCache reports whether a request (and, when status > 0, its
// response) is cacheable under cfg.
func (rc *ResponseCache) ShouldCache(r *http.Request, status int, cfg Config) bool {
	if !rc.env.IsProduction() && !rc.env.DevCacheEnabled() {
		return false
	}

	cfg = cfg.withDefaults()
	methodAllowed := false
	for _, m := range cfg.Methods {
		if m == r.Method {
			methodAllowed = true
			break
		}
	}
	if !methodAllowed {
		return false
	}

	if status > 0 && !statusCacheable(status, cfg.Statuses) {
		return false
	}
	return true
}

// GetCachedResponse looks up the stored response for r. Returns nil on
// a gate failure or miss. A stale entry is deleted and treated as a
// miss. When the request carries an If-None-Match equal to the stored
// ETag the result is a bodyless 304.
func (rc *ResponseCache) GetCachedResponse(r *http.Request, cfg Config) *Lookup {
	cfg = cfg.withDefaults()
	if !rc.ShouldCache(r, 0, cfg) {
		return nil
	}

	key := CacheKey(r, cfg.VaryHeaders)

	var stored CachedResponse
	if !rc.manager.Get(r.Context(), key, &stored) {
		ResponseCacheMisses.Inc()
		return nil
	}

	now := rc.now()
	age := now.Sub(stored.StoredAt)
	if age > cfg.TTL {
		rc.manager.Delete(r.Context(), key)
		ResponseCacheMisses.Inc()
		rc.logger.Debug().Str("key", key).Dur("age", age).Msg("Dropped stale response cache entry")
		return nil
	}

	remaining := int((cfg.TTL - age).Seconds())

	if match := r.Header.Get(HeaderIfNoneMatch); match != "" && match == stored.ETag {
		ResponseCacheHits.WithLabelValues("revalidated").Inc()
		header := http.Header{}
		header.Set(HeaderETag, stored.ETag)
		header.Set(HeaderCacheControl, maxAge(remaining))
		header.Set(HeaderXCache, "HIT")
		return &Lookup{
			Status:      http.StatusNotModified,
			Header:      header,
			NotModified: true,
		}
	}

	header := stored.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderXCache, "HIT")
	header.Set(HeaderXCacheAge, strconv.Itoa(int(age.Seconds())))
	header.Set(HeaderETag, stored.ETag)
	header.Set(HeaderCacheControl, maxAge(remaining))

	ResponseCacheHits.WithLabelValues("full").Inc()
	return &Lookup{
		Status: stored.Status,
		Header: header,
		Body:   stored.Body,
	}
}

// CacheResponse stores a captured response under key. The status gate
// is re-evaluated here against the actual response code. Headers that
// must not be replayed (Set-Cookie, Authorization, X-Cache) are
// stripped before storing. Returns false when the response was not
// stored.
func (rc *ResponseCache) CacheResponse(ctx context.Context, key string, cfg Config, status int, header http.Header, body []byte, etag string) bool {
	cfg = cfg.withDefaults()
	if !rc.env.IsProduction() && !rc.env.DevCacheEnabled() {
		return false
	}
	if !statusCacheable(status, cfg.Statuses) {
		return false
	}

	stored := CachedResponse{
		Status:   status,
		Header:   stripHeaders(header),
		Body:     body,
		ETag:     etag,
		StoredAt: rc.now(),
	}

	if !rc.manager.Set(ctx, key, stored, cfg.TTL) {
		ResponseCacheStoreErrors.Inc()
		return false
	}

	ResponseCacheStores.Inc()
	rc.logger.Debug().
		Str("key", key).
		Int("status", status).
		Dur("ttl", cfg.TTL).
		Msg("Stored response in cache")
	return true
}

// Invalidate deletes every stored response whose key contains pattern
// and returns the number of entries deleted. Tags are accepted for
// interface compatibility but tag-based invalidation is not
// implemented; tags are logged and ignored.
func (rc *ResponseCache) Invalidate(ctx context.Context, pattern string, tags ...string) int {
	if len(tags) > 0 {
		rc.logger.Debug().
			Strs("tags", tags).
			Msg("Tag-based invalidation is not implemented, ignoring tags")
	}
	if pattern == "" {
		return 0
	}
	return rc.manager.InvalidatePattern(ctx, "*"+sanitizePattern(pattern)+"*")
}

// Stats returns the underlying cache counters.
func (rc *ResponseCache) Stats(ctx context.Context) cache.Stats {
	return rc.manager.Stats(ctx)
}

// statusCacheable reports whether status is in the allow-list.
func statusCacheable(status int, allowed []int) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// stripHeaders clones header without the excluded entries.
func stripHeaders(header http.Header) http.Header {
	cloned := header.Clone()
	if cloned == nil {
		return http.Header{}
	}
	for _, name := range excludedHeaders {
		cloned.Del(name)
	}
	return cloned
}

// maxAge formats a Cache-Control header value for the given number of
// seconds.
func maxAge(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return "public, max-age=" + strconv.Itoa(seconds)
}
