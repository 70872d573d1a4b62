package eviction

import "fmt"

/*
This file defines how a bounded cache decides what to remove when a shard is full.

Policy only does bookkeeping. It never touches cached values; the shard asks it
for a victim and deletes that key itself.
*/
type Policy interface {

	// OnGet is called whenever a key is served from the cache.
	OnGet(string)

	// OnPut is called whenever a key is stored.
	OnPut(string)

	// Remove is called when a key leaves the cache for any reason other
	// than Evict (invalidation, expiry).
	Remove(string)

	// Evict picks the key to drop and forgets it. Empty means nothing tracked.
	Evict() string

	// Reset forgets every key.
	Reset()
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// LRU evicts the key that has gone longest without being read or written.
	LRU PolicyType = "LRU"

	// FIFO evicts the key that was first inserted, regardless of reads.
	FIFO PolicyType = "FIFO"
)

// NewEvictionPolicy creates the policy named by t.
func NewEvictionPolicy(t PolicyType) (Policy, error) {
	switch t {
	case LRU, "":
		return newLRU(), nil
	case FIFO:
		return newFIFO(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}
