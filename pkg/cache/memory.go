package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/barangaylink/rbi-cache/pkg/logging"
)

const (
	// DefaultMaxEntries is the capacity used when none is configured.
	DefaultMaxEntries = 1000

	// evictShare is the fraction of entries dropped per cleanup pass
	// when the store is still at capacity after expired entries are
	// removed.
	evictShare = 0.2
)

// MemoryStore is an in-process Client backed by a mutex-guarded map.
//
// Expiry is lazy: expired entries are removed when next accessed, not
// by a background sweep. Capacity eviction runs inline on Set and
// removes the oldest entries by insertion time, so a freshly inserted
// key is never evicted before an older one.
//
// The zero value is not usable; construct with NewMemoryStore.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	maxEntries int

	hits        int64
	misses      int64
	memoryBytes int64

	// now is the clock used for expiry decisions. Tests replace it to
	// simulate time passing.
	now func() time.Time

	logger zerolog.Logger
}

// NewMemoryStore creates an in-memory store holding at most maxEntries
// entries. A non-positive maxEntries selects DefaultMaxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logging.NewLogger("cache"),
	}
}

// SetClock replaces the store's clock. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get returns the value stored under key, or ErrCacheMiss if the key is
// absent or expired. Expired entries are deleted on the way out.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	if entry.Expired(s.now()) {
		s.removeLocked(key, entry)
		CacheExpirations.Inc()
		s.misses++
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	s.hits++
	CacheHits.WithLabelValues(backendMemory).Inc()
	return entry.Data, nil
}

// Set stores value under key. When the store is at capacity the
// eviction pass runs before the insert.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}

	if old, ok := s.entries[key]; ok {
		s.memoryBytes -= old.size(key)
	}

	entry := &Entry{
		Data:     value,
		StoredAt: s.now(),
		TTL:      ttl,
	}
	s.entries[key] = entry
	s.memoryBytes += entry.size(key)
	s.updateGauges()

	return nil
}

// Delete removes the entry under key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		s.removeLocked(key, entry)
	}
	return nil
}

// Exists reports whether a live entry is stored under key. An expired
// entry is deleted and reported as absent.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if entry.Expired(s.now()) {
		s.removeLocked(key, entry)
		CacheExpirations.Inc()
		return false, nil
	}
	return true, nil
}

// Expire updates the TTL of a live entry and resets its age, so the new
// lifetime counts from now rather than from the original insert.
func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if entry.Expired(s.now()) {
		s.removeLocked(key, entry)
		CacheExpirations.Inc()
		return false, nil
	}

	entry.TTL = ttl
	entry.StoredAt = s.now()
	return true, nil
}

// Keys returns all live keys matching the glob pattern. Expired entries
// encountered during the scan are deleted.
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		CacheErrors.WithLabelValues("keys").Inc()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var matched []string
	for key, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(key, entry)
			CacheExpirations.Inc()
			continue
		}
		if re.MatchString(key) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// Flush removes every entry and resets the hit/miss counters.
func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)
	s.hits = 0
	s.misses = 0
	s.memoryBytes = 0
	s.updateGauges()
	return nil
}

// Stats returns a snapshot of the store's counters.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:        s.hits,
		Misses:      s.misses,
		Keys:        len(s.entries),
		MemoryBytes: s.memoryBytes,
	}, nil
}

// Len returns the current entry count, including entries that have
// expired but not yet been swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked frees space for an insert. It first drops all expired
// entries; if the store is still at capacity it drops the oldest 20%
// by insertion time. Caller must hold s.mu.
func (s *MemoryStore) evictLocked() {
	now := s.now()
	for key, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(key, entry)
			CacheExpirations.Inc()
		}
	}

	if len(s.entries) < s.maxEntries {
		return
	}

	type aged struct {
		key      string
		storedAt time.Time
	}
	byAge := make([]aged, 0, len(s.entries))
	for key, entry := range s.entries {
		byAge = append(byAge, aged{key, entry.StoredAt})
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].storedAt.Before(byAge[j].storedAt)
	})

	drop := int(float64(len(byAge)) * evictShare)
	if drop < 1 {
		drop = 1
	}
	for _, candidate := range byAge[:drop] {
		s.removeLocked(candidate.key, s.entries[candidate.key])
		CacheEvictions.Inc()
	}

	s.logger.Debug().
		Int("evicted", drop).
		Int("remaining", len(s.entries)).
		Msg("Capacity eviction pass completed")
}

// removeLocked deletes an entry and keeps the memory estimate in step.
// Caller must hold s.mu.
func (s *MemoryStore) removeLocked(key string, entry *Entry) {
	delete(s.entries, key)
	s.memoryBytes -= entry.size(key)
	s.updateGauges()
}

// updateGauges refreshes the exported size gauges. Caller must hold s.mu.
func (s *MemoryStore) updateGauges() {
	CacheEntries.WithLabelValues(backendMemory).Set(float64(len(s.entries)))
	CacheMemoryBytes.WithLabelValues(backendMemory).Set(float64(s.memoryBytes))
}
