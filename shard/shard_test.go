package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/eviction"
	"github.com/krisalay/resilient-client/types"
)

func TestCOWStore_SnapshotIsolation(t *testing.T) {
	s := NewCOWStore()
	first := &types.CacheEntry{Key: "a", Value: 1}
	s.Put("a", first)

	got, ok := s.Get("a")
	require.True(t, ok)

	s.Put("a", &types.CacheEntry{Key: "a", Value: 2})
	assert.Same(t, first, got, "a reader keeps the entry it loaded")

	got, _ = s.Get("a")
	assert.Equal(t, 2, got.Value)
	assert.EqualValues(t, 1, s.Size())

	s.Delete("a")
	s.Delete("missing")
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.EqualValues(t, 0, s.Size())
}

func TestCOWStore_ClearAndKeys(t *testing.T) {
	s := NewCOWStore()
	s.Put("a", &types.CacheEntry{})
	s.Put("b", &types.CacheEntry{})
	assert.ElementsMatch(t, []string{"a", "b"}, s.Keys())

	s.Clear()
	assert.Empty(t, s.Keys())
	assert.EqualValues(t, 0, s.Size())
}

func TestShard_Full(t *testing.T) {
	ev, err := eviction.NewEvictionPolicy(eviction.LRU)
	require.NoError(t, err)
	sh := NewShard(ev, 1)

	assert.False(t, sh.Full("a"))
	sh.Store.Put("a", &types.CacheEntry{})
	assert.False(t, sh.Full("a"), "overwriting an existing key needs no room")
	assert.True(t, sh.Full("b"))

	unbounded := NewShard(nil, 0)
	unbounded.Store.Put("a", &types.CacheEntry{})
	assert.False(t, unbounded.Full("b"))
}

func TestHashSelector_Stable(t *testing.T) {
	shards := []*Shard{NewShard(nil, 0), NewShard(nil, 0), NewShard(nil, 0)}
	sel := HashSelector{}
	assert.Same(t, sel.Select("bots", shards), sel.Select("bots", shards))
}
