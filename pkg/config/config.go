// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names. Anything other than production counts as a
// development deployment for the cache gate.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Cache backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the service configuration.
type Config struct {
	// Port is the API listen port.
	Port string

	// MetricsPort is the Prometheus listener port.
	MetricsPort string

	// Environment is the deployment stage (production, development).
	Environment string

	// DevCache enables response caching outside production. Off by
	// default so local work never sees stale data.
	DevCache bool

	// CacheBackend selects the cache store (memory, redis).
	CacheBackend string

	// RedisAddr is the Redis address when CacheBackend is redis.
	RedisAddr string

	// CacheMaxEntries caps the in-memory store.
	CacheMaxEntries int

	// CachePrefix namespaces all cache keys.
	CachePrefix string

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string

	// LogPretty enables human-readable console output.
	LogPretty bool

	// RateLimitRequests is the per-client request budget per window.
	RateLimitRequests int

	// RateLimitWindow is the rate limit counting window.
	RateLimitWindow time.Duration

	// CORSOrigins are the allowed cross-origin hosts.
	CORSOrigins []string
}

// Load reads the configuration from the environment, applying defaults
// for anything unset.
func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		MetricsPort:       getEnv("METRICS_PORT", "9090"),
		Environment:       getEnv("APP_ENV", EnvDevelopment),
		DevCache:          getEnvBool("CACHE_ENABLED_IN_DEV", false),
		CacheBackend:      getEnv("CACHE_BACKEND", BackendMemory),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		CacheMaxEntries:   getEnvInt("CACHE_MAX_ENTRIES", 1000),
		CachePrefix:       getEnv("CACHE_PREFIX", "rbi:"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvBool("LOG_PRETTY", false),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"*"}),
	}
}

// IsProduction reports whether this is a production deployment.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DevCacheEnabled reports whether response caching is forced on
// outside production.
func (c Config) DevCacheEnabled() bool {
	return c.DevCache
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
