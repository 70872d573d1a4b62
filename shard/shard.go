package shard

import (
	"sync"

	"github.com/krisalay/resilient-client/eviction"
)

/*
Shard is one independent slice of a ResponseCache.

Each shard has its own store, its own eviction bookkeeping and its own mutex,
so writes for unrelated keys do not contend.
*/
type Shard struct {

	// Store holds key → entry. Reads are lock-free.
	Store ShardStore

	// Eviction tracks usage order for the capacity bound. Nil when unbounded.
	Eviction eviction.Policy

	// Capacity is the maximum number of entries in this shard. Zero means unbounded.
	Capacity int

	// Mu serialises every mutation of Store and Eviction, and the
	// check-and-evict step of a lookup.
	Mu sync.Mutex
}

func NewShard(ev eviction.Policy, capacity int) *Shard {
	return &Shard{
		Store:    NewCOWStore(),
		Eviction: ev,
		Capacity: capacity,
	}
}

// Full reports whether storing a new key requires evicting one.
// Callers must hold Mu.
func (s *Shard) Full(key string) bool {
	if s.Capacity <= 0 {
		return false
	}
	if _, exists := s.Store.Get(key); exists {
		return false
	}
	return s.Store.Size() >= int64(s.Capacity)
}
