package shard

import (
	"sync/atomic"

	"github.com/krisalay/resilient-client/types"
)

/*
This file defines how cached responses are stored inside a shard.

Reads happen on every screen render; writes happen once per network round trip.
So reads must be cheap and lock-free, and writes can afford to copy.
This is "Copy-On-Write" (COW):
- Readers load an immutable map snapshot
- Writers (holding the shard mutex) build a new map and swap it in atomically
*/

// ShardStore is the interface used by a shard to store and retrieve entries.
type ShardStore interface {
	Get(string) (*types.CacheEntry, bool)
	Put(string, *types.CacheEntry)
	Delete(string)
	Clear()
	Keys() []string
	Size() int64
}

type entries = map[string]*types.CacheEntry

type cowStore struct {
	data atomic.Pointer[entries]
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	m := make(entries)
	s.data.Store(&m)
	return s
}

func (s *cowStore) snapshot() entries {
	return *s.data.Load()
}

// Get never blocks. It sees either the map before or after a concurrent write.
func (s *cowStore) Get(key string) (*types.CacheEntry, bool) {
	ent, ok := s.snapshot()[key]
	return ent, ok
}

// Put must be called with the shard mutex held.
func (s *cowStore) Put(key string, ent *types.CacheEntry) {
	old := s.snapshot()
	n := make(entries, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.swap(n)
}

// Delete must be called with the shard mutex held.
func (s *cowStore) Delete(key string) {
	old := s.snapshot()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(entries, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.swap(n)
}

// Clear must be called with the shard mutex held.
func (s *cowStore) Clear() {
	s.swap(make(entries))
}

func (s *cowStore) Keys() []string {
	m := s.snapshot()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}

func (s *cowStore) swap(n entries) {
	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}
