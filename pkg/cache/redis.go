package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Client backed by Redis, for deployments where several
// API instances must share one cache. Expiry is delegated to Redis key
// TTLs, so there is no lazy-deletion or capacity-eviction pass here.
//
// Hit/miss counters are tracked per process; Keys and MemoryBytes in
// Stats reflect the whole database.
type RedisStore struct {
	rdb *redis.Client

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{rdb: rdb}
}

// Get returns the value stored under key.
// Returns ErrCacheMiss if the key is absent or expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			s.misses.Add(1)
			CacheMisses.WithLabelValues(backendRedis).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	s.hits.Add(1)
	CacheHits.WithLabelValues(backendRedis).Inc()
	return data, nil
}

// Set stores value under key with the given lifetime.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the entry under key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Exists reports whether a live entry is stored under key.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("exists").Inc()
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Expire updates the TTL of an existing key. Redis restarts the
// lifetime from now, matching the in-memory age-reset semantics.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		CacheErrors.WithLabelValues("expire").Inc()
		return false, fmt.Errorf("redis expire: %w", err)
	}
	return ok, nil
}

// Keys returns all keys matching the glob pattern. Redis glob syntax
// already treats "*" as a wildcard, so the pattern passes through.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		CacheErrors.WithLabelValues("keys").Inc()
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	return keys, nil
}

// Flush removes every entry in the current database and resets the
// per-process hit/miss counters.
func (s *RedisStore) Flush(ctx context.Context) error {
	if err := s.rdb.FlushDB(ctx).Err(); err != nil {
		CacheErrors.WithLabelValues("flush").Inc()
		return fmt.Errorf("redis flushdb: %w", err)
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

// Stats returns a snapshot of the store's counters. MemoryBytes is
// reported as 0: Redis owns its memory accounting and exposes it
// through its own INFO metrics.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	size, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return Stats{}, fmt.Errorf("redis dbsize: %w", err)
	}

	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Keys:   int(size),
	}, nil
}
