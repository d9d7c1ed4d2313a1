package cache

import "time"

// Entry is a single cached value together with its insertion time and
// lifetime. Entries are immutable once stored; a later Set under the
// same key replaces the entry rather than mutating it.
type Entry struct {
	// Data is the JSON-encoded cached value.
	Data []byte `json:"data"`

	// StoredAt is when the entry was inserted. Expire resets it so the
	// entry's age starts over with the new TTL.
	StoredAt time.Time `json:"stored_at"`

	// TTL is how long the entry stays valid after StoredAt.
	TTL time.Duration `json:"ttl"`
}

// Expired reports whether the entry is past its lifetime at the given
// instant. The boundary is exclusive: an entry whose age equals its TTL
// exactly is still valid.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Age returns how long the entry has been stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Remaining returns the time until the entry expires.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	remaining := e.TTL - e.Age(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// size estimates the memory footprint of the entry under key.
// Two bytes per character of key and value plus fixed bookkeeping
// overhead, matching how the stats endpoint has always reported usage.
func (e *Entry) size(key string) int64 {
	return 2*int64(len(key)) + 2*int64(len(e.Data)) + 16
}
