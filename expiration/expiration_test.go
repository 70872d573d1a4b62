package expiration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/types"
)

func TestExpireAfterWrite_InclusiveBoundary(t *testing.T) {
	s := &ExpireAfterWrite{Lifetime: 30 * time.Second}
	t0 := time.Unix(1_000, 0)

	ent := &types.CacheEntry{Key: "dashboard"}
	s.OnWrite(ent, t0)

	assert.Equal(t, t0, ent.StoredAt)
	assert.False(t, s.IsExpired(ent, t0))
	assert.False(t, s.IsExpired(ent, t0.Add(20*time.Second)))
	assert.False(t, s.IsExpired(ent, t0.Add(30*time.Second)))
	assert.True(t, s.IsExpired(ent, t0.Add(30*time.Second+time.Nanosecond)))
	assert.True(t, s.IsExpired(ent, t0.Add(31*time.Second)))
}

func TestExpireAfterWrite_ReadDoesNotExtend(t *testing.T) {
	s := &ExpireAfterWrite{Lifetime: time.Second}
	t0 := time.Unix(0, 0)

	ent := &types.CacheEntry{}
	s.OnWrite(ent, t0)

	_, changed := s.OnAccess(*ent, t0.Add(500*time.Millisecond))
	assert.False(t, changed)
}

func TestExpireAfterAccess_Slides(t *testing.T) {
	s := &ExpireAfterAccess{Lifetime: time.Second}
	t0 := time.Unix(0, 0)

	ent := &types.CacheEntry{}
	s.OnWrite(ent, t0)

	next, changed := s.OnAccess(*ent, t0.Add(900*time.Millisecond))
	require.True(t, changed)
	assert.False(t, s.IsExpired(&next, t0.Add(1800*time.Millisecond)))
	assert.True(t, s.IsExpired(ent, t0.Add(1800*time.Millisecond)), "original entry is not mutated")
}

func TestNew(t *testing.T) {
	s, err := New("", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &ExpireAfterWrite{}, s)
	assert.Equal(t, time.Minute, s.TTL())

	s, err = New(AfterAccess, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &ExpireAfterAccess{}, s)

	_, err = New("forever", time.Minute)
	assert.Error(t, err)
}
