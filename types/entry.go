package types

import "time"

// CacheEntry is one cached response.
// Entries are never mutated after they are stored; a changed entry is a new copy.
type CacheEntry struct {
	Key            string
	Value          any
	StoredAt       time.Time
	LastAccessedAt time.Time
	ExpireAt       time.Time // zero => never expires
}

// Fresh reports whether the entry may still be served at now.
// An entry stored at T with ttl t is fresh for every now in [T, T+t].
func (e *CacheEntry) Fresh(now time.Time) bool {
	return e.ExpireAt.IsZero() || !now.After(e.ExpireAt)
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
