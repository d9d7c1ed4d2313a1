// Package ratelimit implements per-client request gating for the RBI
// API. Counting is fixed-window and in-memory: each client gets a
// request budget per window, and stale windows are swept by a periodic
// cleanup pass rather than on access.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/barangaylink/rbi-cache/pkg/logging"
)

// Prometheus metrics for rate limiting.
var (
	rateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbi_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter",
	})

	rateLimitClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rbi_rate_limit_clients",
		Help: "Number of client windows currently tracked",
	})
)

// CleanupInterval is how often expired client windows are swept.
const CleanupInterval = 5 * time.Minute

// Config holds the limiter configuration.
type Config struct {
	// Requests is the budget per client per window.
	Requests int

	// Window is the length of the counting window.
	Window time.Duration
}

// DefaultConfig returns a budget suitable for the registry API: bursts
// from a single clerk's dashboard stay well under it.
func DefaultConfig() Config {
	return Config{
		Requests: 100,
		Window:   time.Minute,
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks per-client request counts in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a limiter. Zero-value config fields fall back to
// DefaultConfig.
func New(cfg Config) *Limiter {
	defaults := DefaultConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = defaults.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	return &Limiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		now:     time.Now,
		logger:  logging.NewLogger("ratelimit"),
	}
}

// SetClock replaces the limiter's clock. Intended for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records a request for client and reports whether it is within
// budget, along with the remaining budget and the window reset time.
func (l *Limiter) Allow(client string) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	win, ok := l.windows[client]
	if !ok || !now.Before(win.resetAt) {
		win = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[client] = win
		rateLimitClients.Set(float64(len(l.windows)))
	}

	if win.count >= l.cfg.Requests {
		return false, 0, win.resetAt
	}

	win.count++
	return true, l.cfg.Requests - win.count, win.resetAt
}

// Start runs the periodic cleanup sweep until ctx is done. Windows are
// only ever reset in place by Allow, so without the sweep the map
// would grow with one entry per client ever seen.
func (l *Limiter) Start(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops windows whose reset time has passed.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for client, win := range l.windows {
		if !now.Before(win.resetAt) {
			delete(l.windows, client)
			removed++
		}
	}
	rateLimitClients.Set(float64(len(l.windows)))

	if removed > 0 {
		l.logger.Debug().
			Int("removed", removed).
			Int("remaining", len(l.windows)).
			Msg("Swept expired rate limit windows")
	}
}

// Middleware rejects over-budget clients with 429 and attaches the
// standard X-RateLimit headers to every response.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientKey(r)
		allowed, remaining, resetAt := l.Allow(client)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			rateLimitRejections.Inc()
			l.logger.Warn().
				Str("client", client).
				Str("path", r.URL.Path).
				Time("reset_at", resetAt).
				Msg("Request rejected by rate limiter")

			retryAfter := int(resetAt.Sub(l.nowSafe()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) nowSafe() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now()
}

// ClientKey identifies the caller: the first X-Forwarded-For hop when
// the API sits behind a proxy, otherwise the remote address without
// the port.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
