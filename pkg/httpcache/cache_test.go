package httpcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barangaylink/rbi-cache/pkg/cache"
)

// testEnv is a fixed Environment for tests.
type testEnv struct {
	production bool
	devCache   bool
}

func (e testEnv) IsProduction() bool    { return e.production }
func (e testEnv) DevCacheEnabled() bool { return e.devCache }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func setupResponseCache(t *testing.T, env Environment) (*ResponseCache, *cache.MemoryStore, *fakeClock) {
	t.Helper()
	store := cache.NewMemoryStore(0)
	clock := newFakeClock()
	store.SetClock(clock.Now)

	rc := New(cache.NewManager(store, "rbi:"), env)
	rc.SetClock(clock.Now)
	return rc, store, clock
}

// storeResponse caches a response for r and returns the derived key.
func storeResponse(t *testing.T, rc *ResponseCache, r *http.Request, cfg Config, status int, body string) string {
	t.Helper()
	key := CacheKey(r, cfg.VaryHeaders)
	header := http.Header{"Content-Type": []string{"application/json"}}
	if !rc.CacheResponse(context.Background(), key, cfg, status, header, []byte(body), ETagFor([]byte(body))) {
		t.Fatalf("CacheResponse refused to store status %d", status)
	}
	return key
}

func TestShouldCache_Methods(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	tests := []struct {
		method   string
		expected bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodPost, false},
		{http.MethodPut, false},
		{http.MethodDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/residents", nil)
			if got := rc.ShouldCache(r, 0, cfg); got != tt.expected {
				t.Errorf("ShouldCache(%s) = %v, want %v", tt.method, got, tt.expected)
			}
		})
	}
}

func TestShouldCache_Statuses(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}
	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)

	tests := []struct {
		status   int
		expected bool
	}{
		{200, true},
		{201, true},
		{203, true},
		{301, true},
		{308, true},
		{410, true},
		{204, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		if got := rc.ShouldCache(r, tt.status, cfg); got != tt.expected {
			t.Errorf("ShouldCache(status=%d) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestShouldCache_EnvironmentGate(t *testing.T) {
	cfg := Config{TTL: time.Minute}
	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)

	tests := []struct {
		name     string
		env      testEnv
		expected bool
	}{
		{"production", testEnv{production: true}, true},
		{"development", testEnv{}, false},
		{"development with override", testEnv{devCache: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, _, _ := setupResponseCache(t, tt.env)
			if got := rc.ShouldCache(r, 0, cfg); got != tt.expected {
				t.Errorf("ShouldCache = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCachedResponse_Miss(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	if lookup := rc.GetCachedResponse(r, Config{TTL: time.Minute}); lookup != nil {
		t.Errorf("GetCachedResponse on empty cache = %+v, want nil", lookup)
	}
}

func TestGetCachedResponse_Hit(t *testing.T) {
	rc, _, clock := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	body := `{"page":1}`
	storeResponse(t, rc, r, cfg, http.StatusOK, body)

	clock.Advance(10 * time.Second)

	lookup := rc.GetCachedResponse(r, cfg)
	if lookup == nil {
		t.Fatal("GetCachedResponse = nil, want hit")
	}
	if lookup.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", lookup.Status)
	}
	if string(lookup.Body) != body {
		t.Errorf("Body = %s, want %s", lookup.Body, body)
	}
	if lookup.Header.Get(HeaderXCache) != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", lookup.Header.Get(HeaderXCache))
	}
	if lookup.Header.Get(HeaderXCacheAge) != "10" {
		t.Errorf("X-Cache-Age = %q, want 10", lookup.Header.Get(HeaderXCacheAge))
	}
	if lookup.Header.Get(HeaderCacheControl) != "public, max-age=50" {
		t.Errorf("Cache-Control = %q, want remaining 50s", lookup.Header.Get(HeaderCacheControl))
	}
}

func TestGetCachedResponse_StaleEntryDeleted(t *testing.T) {
	rc, store, clock := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	key := storeResponse(t, rc, r, cfg, http.StatusOK, `{}`)

	// Backend TTL equals the config TTL, but the response-cache layer
	// checks age itself; force staleness through the shared clock.
	clock.Advance(2 * time.Minute)

	if lookup := rc.GetCachedResponse(r, cfg); lookup != nil {
		t.Fatalf("GetCachedResponse on stale entry = %+v, want nil", lookup)
	}
	if ok, _ := store.Exists(context.Background(), "rbi:"+key); ok {
		t.Error("stale entry was not deleted")
	}
}

func TestGetCachedResponse_NotModified(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	body := `{"page":1}`
	storeResponse(t, rc, r, cfg, http.StatusOK, body)

	conditional := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	conditional.Header.Set(HeaderIfNoneMatch, ETagFor([]byte(body)))

	lookup := rc.GetCachedResponse(conditional, cfg)
	if lookup == nil {
		t.Fatal("GetCachedResponse = nil, want 304")
	}
	if lookup.Status != http.StatusNotModified {
		t.Errorf("Status = %d, want 304", lookup.Status)
	}
	if !lookup.NotModified {
		t.Error("NotModified = false, want true")
	}
	if len(lookup.Body) != 0 {
		t.Errorf("304 carried a body: %s", lookup.Body)
	}
	if lookup.Header.Get(HeaderXCache) != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", lookup.Header.Get(HeaderXCache))
	}
}

func TestGetCachedResponse_ETagMismatchServesFullResponse(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	storeResponse(t, rc, r, cfg, http.StatusOK, `{"page":1}`)

	conditional := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	conditional.Header.Set(HeaderIfNoneMatch, `"0000000000000000"`)

	lookup := rc.GetCachedResponse(conditional, cfg)
	if lookup == nil {
		t.Fatal("GetCachedResponse = nil, want full hit")
	}
	if lookup.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", lookup.Status)
	}
	if len(lookup.Body) == 0 {
		t.Error("full hit carried no body")
	}
}

func TestCacheResponse_StripsExcludedHeaders(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	key := CacheKey(r, nil)
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Set-Cookie", "session=secret")
	header.Set("Authorization", "Bearer token")
	header.Set(HeaderXCache, "MISS")

	body := []byte(`{}`)
	if !rc.CacheResponse(context.Background(), key, cfg, http.StatusOK, header, body, ETagFor(body)) {
		t.Fatal("CacheResponse returned false")
	}

	lookup := rc.GetCachedResponse(r, cfg)
	if lookup == nil {
		t.Fatal("GetCachedResponse = nil, want hit")
	}
	if lookup.Header.Get("Set-Cookie") != "" {
		t.Error("Set-Cookie survived into the cached response")
	}
	if lookup.Header.Get("Authorization") != "" {
		t.Error("Authorization survived into the cached response")
	}
	if lookup.Header.Get("Content-Type") != "application/json" {
		t.Error("Content-Type was lost")
	}
}

func TestCacheResponse_RejectsUncacheableStatus(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	if rc.CacheResponse(context.Background(), "some_key", cfg, http.StatusInternalServerError, http.Header{}, []byte(`{}`), `"x"`) {
		t.Error("CacheResponse stored a 500")
	}
}

func TestInvalidate(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	residents := httptest.NewRequest(http.MethodGet, "/api/residents?page=1", nil)
	dashboard := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	storeResponse(t, rc, residents, cfg, http.StatusOK, `{"page":1}`)
	storeResponse(t, rc, dashboard, cfg, http.StatusOK, `{"total":5}`)

	deleted := rc.Invalidate(context.Background(), "api_residents")
	if deleted != 1 {
		t.Errorf("Invalidate = %d, want 1", deleted)
	}

	if rc.GetCachedResponse(residents, cfg) != nil {
		t.Error("invalidated response still served")
	}
	if rc.GetCachedResponse(dashboard, cfg) == nil {
		t.Error("unrelated response was invalidated")
	}
}

func TestInvalidate_PatternIsSanitized(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	residents := httptest.NewRequest(http.MethodGet, "/api/residents?page=1", nil)
	storeResponse(t, rc, residents, cfg, http.StatusOK, `{}`)

	// Callers pass path-like patterns; keys store underscores.
	if deleted := rc.Invalidate(context.Background(), "/api/residents"); deleted != 1 {
		t.Errorf("Invalidate with path pattern = %d, want 1", deleted)
	}
}

func TestInvalidate_TagsAreIgnored(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})
	cfg := Config{TTL: time.Minute}

	r := httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	storeResponse(t, rc, r, cfg, http.StatusOK, `{}`)

	// Tags are accepted but produce no deletions beyond the pattern.
	deleted := rc.Invalidate(context.Background(), "no_such_pattern", "residents", "dashboard")
	if deleted != 0 {
		t.Errorf("Invalidate = %d, want 0 (tags must be no-ops)", deleted)
	}
	if rc.GetCachedResponse(r, cfg) == nil {
		t.Error("tag-only invalidation removed an entry")
	}
}

func TestInvalidate_EmptyPattern(t *testing.T) {
	rc, _, _ := setupResponseCache(t, testEnv{production: true})

	if deleted := rc.Invalidate(context.Background(), ""); deleted != 0 {
		t.Errorf("Invalidate(\"\") = %d, want 0", deleted)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{TTL: time.Minute}.withDefaults()

	if len(cfg.Methods) != 2 {
		t.Errorf("Methods = %v, want GET and HEAD", cfg.Methods)
	}
	if len(cfg.Statuses) != len(DefaultStatuses) {
		t.Errorf("Statuses = %v, want defaults", cfg.Statuses)
	}

	// Explicit lists are left alone.
	custom := Config{Methods: []string{http.MethodGet}, Statuses: []int{200}}.withDefaults()
	if len(custom.Methods) != 1 || len(custom.Statuses) != 1 {
		t.Error("withDefaults overwrote explicit configuration")
	}
}
