package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	// or had already expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Stats is a snapshot of a backend's counters.
type Stats struct {
	// Hits is the number of successful reads since the last flush.
	Hits int64 `json:"hits"`

	// Misses is the number of failed reads since the last flush.
	Misses int64 `json:"misses"`

	// Keys is the current number of stored entries.
	Keys int `json:"keys"`

	// MemoryBytes is the estimated memory used by stored entries.
	// Zero for backends that manage their own memory.
	MemoryBytes int64 `json:"memory_bytes"`
}

// Client is the backend contract for the caching layer. Implementations
// must be safe for concurrent use. Values are opaque byte slices; the
// Manager layer handles JSON encoding.
type Client interface {
	// Get returns the value stored under key.
	// Returns ErrCacheMiss if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for the given lifetime, replacing any
	// existing entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live (non-expired) entry is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Expire updates the TTL of an existing entry and resets its age.
	// Returns false if no live entry is stored under key.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Keys returns all live keys matching the glob pattern, where "*"
	// matches any run of characters.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Flush removes every entry and resets the hit/miss counters.
	Flush(ctx context.Context) error

	// Stats returns a snapshot of the backend's counters.
	Stats(ctx context.Context) (Stats, error)
}
