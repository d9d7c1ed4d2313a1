package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/barangaylink/rbi-cache/pkg/logging"
)

// DefaultPrefix is the key namespace used when none is configured.
const DefaultPrefix = "rbi:"

// Manager namespaces a Client under a fixed key prefix and adds
// JSON-transparent helpers on top of the raw byte contract.
//
// The Manager is the resilience boundary of the caching layer: backend
// failures are logged with the failing key and surfaced as boolean
// results, never as errors. Callers treat a failed cache operation as
// a miss (or a skipped write) and continue serving the request.
type Manager struct {
	client Client
	prefix string
	logger zerolog.Logger
}

// NewManager creates a manager over the given backend. An empty prefix
// selects DefaultPrefix.
func NewManager(client Client, prefix string) *Manager {
	if client == nil {
		panic("cache client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{
		client: client,
		prefix: prefix,
		logger: logging.NewLogger("cache"),
	}
}

// Client returns the underlying backend.
func (m *Manager) Client() Client {
	return m.client
}

// Get unmarshals the value cached under key into dest and reports
// whether a value was found. Lookup failures and undecodable entries
// are logged and reported as a miss.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	data, err := m.client.Get(ctx, m.prefix+key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cached value could not be decoded, treating as miss")
		_ = m.client.Delete(ctx, m.prefix+key)
		return false
	}
	return true
}

// Set JSON-encodes value and stores it under key for the given
// lifetime. Returns false, after logging, if encoding or the backend
// write fails.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache value could not be encoded")
		return false
	}

	if err := m.client.Set(ctx, m.prefix+key, data, ttl); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache set failed")
		return false
	}
	return true
}

// Delete removes the entry under key. Returns false if the backend
// reported a failure.
func (m *Manager) Delete(ctx context.Context, key string) bool {
	if err := m.client.Delete(ctx, m.prefix+key); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache delete failed")
		return false
	}
	return true
}

// Exists reports whether a live entry is cached under key.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	ok, err := m.client.Exists(ctx, m.prefix+key)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache exists check failed")
		return false
	}
	return ok
}

// Expire updates the TTL of a cached entry and resets its age.
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := m.client.Expire(ctx, m.prefix+key, ttl)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache expire failed")
		return false
	}
	return ok
}

// InvalidatePattern deletes every entry whose unprefixed key matches
// the glob pattern and returns the number of entries deleted.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) int {
	keys, err := m.client.Keys(ctx, m.prefix+pattern)
	if err != nil {
		m.logger.Warn().Err(err).Str("pattern", pattern).Msg("Cache invalidation scan failed")
		return 0
	}

	deleted := 0
	for _, key := range keys {
		if err := m.client.Delete(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache delete failed during invalidation")
			continue
		}
		deleted++
	}

	m.logger.Info().
		Str("pattern", pattern).
		Int("deleted", deleted).
		Msg("Invalidated cache entries")
	return deleted
}

// Stats returns the backend's counters. A backend failure is logged
// and yields zero stats.
func (m *Manager) Stats(ctx context.Context) Stats {
	stats, err := m.client.Stats(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Cache stats failed")
		return Stats{}
	}
	return stats
}

// Clear flushes the backend. Returns false if the flush failed.
func (m *Manager) Clear(ctx context.Context) bool {
	if err := m.client.Flush(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Cache clear failed")
		return false
	}
	return true
}

// GetOrSet returns the value cached under key, or computes, stores and
// returns it. Compute errors are returned unchanged; a failed store is
// logged by Set and does not fail the call. Concurrent misses for the
// same key each run compute - callers needing de-duplication must
// coalesce upstream.
func GetOrSet[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if m.Get(ctx, key, &cached) {
		return cached, nil
	}

	computed, err := compute(ctx)
	if err != nil {
		return computed, err
	}

	m.Set(ctx, key, computed, ttl)
	return computed, nil
}
