package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func setupMemoryStore(t *testing.T, maxEntries int) (*MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore(maxEntries)
	clock := newFakeClock()
	store.SetClock(clock.Now)
	return store, clock
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	value := []byte(`{"last_name":"Dela Cruz"}`)
	if err := store.Set(ctx, "resident:1", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "resident:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("Get = %s, want %s", got, value)
	}
}

func TestMemoryStore_Get_Miss(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get on absent key = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store, clock := setupMemoryStore(t, 0)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte(`{"a":1}`), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Just past the TTL the read must miss and lazily delete.
	clock.Advance(1100 * time.Millisecond)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get after expiry = %v, want ErrCacheMiss", err)
	}

	keys, err := store.Keys(ctx, "k*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys after expiry = %v, want empty", keys)
	}
	if store.Len() != 0 {
		t.Errorf("Len after expired read = %d, want 0", store.Len())
	}
}

func TestMemoryStore_Expiry_BoundaryIsExclusive(t *testing.T) {
	store, clock := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte(`1`), time.Second)
	clock.Advance(time.Second)

	// Age == TTL is still a hit.
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Errorf("Get at exact TTL = %v, want hit", err)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	store, clock := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte(`1`), time.Second)

	if ok, _ := store.Exists(ctx, "k"); !ok {
		t.Error("Exists on live key = false, want true")
	}

	clock.Advance(2 * time.Second)
	if ok, _ := store.Exists(ctx, "k"); ok {
		t.Error("Exists on expired key = true, want false")
	}
	if store.Len() != 0 {
		t.Error("expired key was not lazily deleted by Exists")
	}
}

func TestMemoryStore_Expire_ResetsAge(t *testing.T) {
	store, clock := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte(`1`), 10*time.Second)
	clock.Advance(9 * time.Second)

	ok, err := store.Expire(ctx, "k", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("Expire = (%v, %v), want (true, nil)", ok, err)
	}

	// Old age must not count toward the new TTL.
	clock.Advance(4 * time.Second)
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Errorf("Get 4s after Expire(5s) = %v, want hit", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get 6s after Expire(5s) = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Expire_AbsentKey(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)

	ok, err := store.Expire(context.Background(), "absent", time.Minute)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ok {
		t.Error("Expire on absent key = true, want false")
	}
}

func TestMemoryStore_Keys_Glob(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "rbi:residents:1", []byte(`1`), time.Minute)
	store.Set(ctx, "rbi:residents:2", []byte(`2`), time.Minute)
	store.Set(ctx, "rbi:dashboard", []byte(`3`), time.Minute)

	keys, err := store.Keys(ctx, "rbi:residents:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys = %v, want 2 resident keys", keys)
	}
	if keys[0] != "rbi:residents:1" || keys[1] != "rbi:residents:2" {
		t.Errorf("Keys = %v, want sorted resident keys", keys)
	}
}

func TestMemoryStore_CapacityEviction(t *testing.T) {
	const maxEntries = 1000
	store, clock := setupMemoryStore(t, maxEntries)
	ctx := context.Background()

	// Distinct insertion timestamps so oldest-first ordering is exact.
	for i := 0; i < maxEntries; i++ {
		key := fmt.Sprintf("key:%04d", i)
		if err := store.Set(ctx, key, []byte(`1`), time.Hour); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
		clock.Advance(time.Millisecond)
	}

	if store.Len() != maxEntries {
		t.Fatalf("Len = %d, want %d", store.Len(), maxEntries)
	}

	if err := store.Set(ctx, "key:newest", []byte(`1`), time.Hour); err != nil {
		t.Fatalf("Set newest failed: %v", err)
	}

	if store.Len() > maxEntries {
		t.Errorf("Len after eviction = %d, want <= %d", store.Len(), maxEntries)
	}

	// The 20% oldest-inserted keys are gone.
	for i := 0; i < maxEntries/5; i++ {
		key := fmt.Sprintf("key:%04d", i)
		if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Fatalf("oldest key %s survived eviction", key)
		}
	}

	// A key just above the eviction line survived.
	if _, err := store.Get(ctx, fmt.Sprintf("key:%04d", maxEntries/5)); err != nil {
		t.Errorf("key at eviction boundary was evicted: %v", err)
	}

	// The just-inserted key is present.
	if _, err := store.Get(ctx, "key:newest"); err != nil {
		t.Errorf("newest key missing after eviction: %v", err)
	}
}

func TestMemoryStore_Eviction_DropsExpiredFirst(t *testing.T) {
	store, clock := setupMemoryStore(t, 10)
	ctx := context.Background()

	// Five short-lived entries, five long-lived.
	for i := 0; i < 5; i++ {
		store.Set(ctx, fmt.Sprintf("short:%d", i), []byte(`1`), time.Second)
	}
	for i := 0; i < 5; i++ {
		store.Set(ctx, fmt.Sprintf("long:%d", i), []byte(`1`), time.Hour)
	}

	clock.Advance(2 * time.Second)

	// Expired entries alone free enough space, so no live entry is
	// evicted.
	store.Set(ctx, "trigger", []byte(`1`), time.Hour)

	for i := 0; i < 5; i++ {
		if _, err := store.Get(ctx, fmt.Sprintf("long:%d", i)); err != nil {
			t.Errorf("live entry long:%d was evicted while expired entries existed", i)
		}
	}
}

func TestMemoryStore_Flush_Idempotent(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "a", []byte(`1`), time.Minute)
	store.Get(ctx, "a")
	store.Get(ctx, "absent")

	for i := 0; i < 3; i++ {
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("Flush #%d failed: %v", i+1, err)
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Hits != 0 || stats.Misses != 0 || stats.Keys != 0 || stats.MemoryBytes != 0 {
			t.Errorf("Stats after flush = %+v, want all zero", stats)
		}
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	value := []byte(`{"a":1}`)
	store.Set(ctx, "k", value, time.Minute)
	store.Get(ctx, "k")
	store.Get(ctx, "k")
	store.Get(ctx, "absent")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Keys != 1 {
		t.Errorf("Keys = %d, want 1", stats.Keys)
	}

	wantMemory := 2*int64(len("k")) + 2*int64(len(value)) + 16
	if stats.MemoryBytes != wantMemory {
		t.Errorf("MemoryBytes = %d, want %d", stats.MemoryBytes, wantMemory)
	}
}

func TestMemoryStore_Set_ReplacesEntry(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte(`"old"`), time.Minute)
	store.Set(ctx, "k", []byte(`"new"`), time.Minute)

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `"new"` {
		t.Errorf("Get = %s, want %q", got, `"new"`)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	// Memory accounting must not double-count the replaced entry.
	stats, _ := store.Stats(ctx)
	wantMemory := 2*int64(len("k")) + 2*int64(len(`"new"`)) + 16
	if stats.MemoryBytes != wantMemory {
		t.Errorf("MemoryBytes = %d, want %d", stats.MemoryBytes, wantMemory)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store, _ := setupMemoryStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte(`1`), time.Minute)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key = %v, want nil", err)
	}
}
