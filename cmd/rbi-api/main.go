// Command rbi-api serves the resident-registry API with response
// caching, rate limiting and CORS in front of the data handlers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/barangaylink/rbi-cache/pkg/cache"
	"github.com/barangaylink/rbi-cache/pkg/config"
	"github.com/barangaylink/rbi-cache/pkg/httpcache"
	"github.com/barangaylink/rbi-cache/pkg/logging"
	"github.com/barangaylink/rbi-cache/pkg/ratelimit"
)

func main() {
	cfg := config.Load()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
	logger := logging.NewLogger("rbi-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := newStore(ctx, cfg, logger)
	manager := cache.NewManager(store, cfg.CachePrefix)
	responseCache := httpcache.New(manager, cfg)

	limiter := ratelimit.New(ratelimit.Config{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
	})
	go limiter.Start(ctx)

	router := newRouter(responseCache, manager)

	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins(cfg.CORSOrigins),
		ghandlers.AllowedMethods([]string{"GET", "HEAD", "POST", "OPTIONS"}),
		ghandlers.AllowedHeaders([]string{"Authorization", "Content-Type", "If-None-Match"}),
	)

	apiServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           cors(limiter.Middleware(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().
			Str("addr", apiServer.Addr).
			Str("backend", cfg.CacheBackend).
			Str("environment", cfg.Environment).
			Msg("Starting RBI API server")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.Info().Str("addr", metricsServer.Addr).Msg("Starting metrics server")
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("Shutting down")
		_ = metricsServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// newStore selects the cache backend. When Redis is configured but not
// reachable the service falls back to the in-memory store rather than
// refusing to start: the cache is additive infrastructure.
func newStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) cache.Client {
	if cfg.CacheBackend != config.BackendRedis {
		return cache.NewMemoryStore(cfg.CacheMaxEntries)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("Redis not reachable, falling back to in-memory cache")
		return cache.NewMemoryStore(cfg.CacheMaxEntries)
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return cache.NewRedisStore(rdb)
}

// newRouter builds the API routes with their cache presets.
func newRouter(rc *httpcache.ResponseCache, manager *cache.Manager) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	router.Handle("/api/dashboard",
		rc.Middleware(httpcache.PresetDashboard)(http.HandlerFunc(dashboardHandler))).
		Methods(http.MethodGet, http.MethodHead)

	router.Handle("/api/residents",
		rc.Middleware(httpcache.PresetResidents)(http.HandlerFunc(residentsHandler))).
		Methods(http.MethodGet, http.MethodHead)

	router.Handle("/api/reference/{set}",
		rc.Middleware(httpcache.PresetReference)(http.HandlerFunc(referenceHandler))).
		Methods(http.MethodGet, http.MethodHead)

	router.Handle("/api/search",
		rc.Middleware(httpcache.PresetSearch)(http.HandlerFunc(searchHandler))).
		Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/admin/cache/stats", statsHandler(manager)).Methods(http.MethodGet)
	router.HandleFunc("/admin/cache/invalidate", invalidateHandler(rc)).Methods(http.MethodPost)

	return router
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Resident is the registry record served by the listing and search
// endpoints. Trimmed to the fields the dashboards actually read.
type Resident struct {
	ID          int    `json:"id"`
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	CivilStatus string `json:"civil_status"`
	Barangay    string `json:"barangay"`
}

// residents is the demo dataset. The real deployment fronts the
// registry database; the cache layer does not care where rows come
// from.
var residents = []Resident{
	{ID: 1, LastName: "Dela Cruz", FirstName: "Juan", CivilStatus: "single", Barangay: "San Isidro"},
	{ID: 2, LastName: "Santos", FirstName: "Maria", CivilStatus: "married", Barangay: "San Isidro"},
	{ID: 3, LastName: "Reyes", FirstName: "Jose", CivilStatus: "widowed", Barangay: "Poblacion"},
	{ID: 4, LastName: "Garcia", FirstName: "Ana", CivilStatus: "single", Barangay: "Poblacion"},
	{ID: 5, LastName: "Mendoza", FirstName: "Pedro", CivilStatus: "married", Barangay: "Bagong Silang"},
}

func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	byStatus := map[string]int{}
	byBarangay := map[string]int{}
	for _, res := range residents {
		byStatus[res.CivilStatus]++
		byBarangay[res.Barangay]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_residents": len(residents),
		"by_civil_status": byStatus,
		"by_barangay":     byBarangay,
		"generated_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

func residentsHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	const pageSize = 2

	start := (page - 1) * pageSize
	if start >= len(residents) {
		writeJSON(w, http.StatusOK, map[string]any{"page": page, "residents": []Resident{}})
		return
	}
	end := start + pageSize
	if end > len(residents) {
		end = len(residents)
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "residents": residents[start:end]})
}

// referenceSets are the static lookup tables the registration forms
// consume.
var referenceSets = map[string][]string{
	"civil-status": {"single", "married", "widowed", "separated", "annulled"},
	"barangays":    {"San Isidro", "Poblacion", "Bagong Silang"},
	"suffixes":     {"Jr.", "Sr.", "II", "III", "IV"},
}

func referenceHandler(w http.ResponseWriter, r *http.Request) {
	set := mux.Vars(r)["set"]
	values, ok := referenceSets[set]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown reference set"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"set": set, "values": values})
}

func searchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("q"))
	var matched []Resident
	for _, res := range residents {
		if query == "" ||
			strings.Contains(strings.ToLower(res.LastName), query) ||
			strings.Contains(strings.ToLower(res.FirstName), query) {
			matched = append(matched, res)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": matched})
}

func statsHandler(manager *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Stats(r.Context()))
	}
}

func invalidateHandler(rc *httpcache.ResponseCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pattern := r.URL.Query().Get("pattern")
		if pattern == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pattern is required"})
			return
		}
		deleted := rc.Invalidate(r.Context(), pattern)
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
