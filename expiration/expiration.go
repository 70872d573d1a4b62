// This file defines how cache entries expire over time.

package expiration

import (
	"fmt"
	"time"

	"github.com/krisalay/resilient-client/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
expiration logic into the cache, we define a strategy so expiration behavior can be swapped easily.
*/
type Strategy interface {

	// IsExpired checks if the entry is expired at now.
	IsExpired(*types.CacheEntry, time.Time) bool

	// OnAccess is called whenever an entry is read successfully.
	// Entries are immutable once stored, so a strategy that wants to change
	// an entry returns the replacement and true.
	OnAccess(types.CacheEntry, time.Time) (types.CacheEntry, bool)

	// OnWrite is called on a new entry before it is stored.
	OnWrite(*types.CacheEntry, time.Time)

	// TTL is the lifetime this strategy gives an entry.
	TTL() time.Duration
}

// Kind names a strategy in configuration.
type Kind string

const (
	// AfterWrite expires an entry a fixed TTL after it was stored.
	AfterWrite Kind = "write"

	// AfterAccess expires an entry a fixed TTL after it was last read.
	AfterAccess Kind = "access"
)

// New builds the strategy for kind. An empty kind means AfterWrite.
func New(kind Kind, ttl time.Duration) (Strategy, error) {
	switch kind {
	case AfterWrite, "":
		return &ExpireAfterWrite{Lifetime: ttl}, nil
	case AfterAccess:
		return &ExpireAfterAccess{Lifetime: ttl}, nil
	default:
		return nil, fmt.Errorf("unknown expiration strategy %q", kind)
	}
}

// expired is shared by both strategies: stale iff now is past ExpireAt.
func expired(ent *types.CacheEntry, now time.Time) bool {
	return !ent.Fresh(now)
}
