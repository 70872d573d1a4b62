package engine

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/expiration"
	"github.com/krisalay/resilient-client/types"
)

func TestNewCacheEngineDefaults(t *testing.T) {
	e := NewCacheEngine(nil, nil, nil, nil)
	require.NotNil(t, e.Clock)
	require.NotNil(t, e.Metrics)
	require.NotNil(t, e.Logger)
	assert.Zero(t, e.TTL())

	ent := &types.CacheEntry{Key: "k"}
	e.OnWrite(ent)
	assert.False(t, ent.StoredAt.IsZero())
	assert.False(t, e.IsExpired(ent))
}

func TestEngineFollowsStrategy(t *testing.T) {
	clk := clock.NewMock()
	exp, err := expiration.New(expiration.AfterWrite, 30*time.Second)
	require.NoError(t, err)
	e := NewCacheEngine(exp, clk, nil, nil)

	ent := &types.CacheEntry{Key: "dashboard"}
	e.OnWrite(ent)
	assert.Equal(t, clk.Now().Add(30*time.Second), ent.ExpireAt)
	assert.Equal(t, 30*time.Second, e.TTL())

	clk.Add(30 * time.Second)
	assert.False(t, e.IsExpired(ent))

	_, replaced := e.OnRead(ent)
	assert.False(t, replaced)

	clk.Add(time.Second)
	assert.True(t, e.IsExpired(ent))
}

func TestEngineSlidingReplacesEntry(t *testing.T) {
	clk := clock.NewMock()
	exp, err := expiration.New(expiration.AfterAccess, 10*time.Second)
	require.NoError(t, err)
	e := NewCacheEngine(exp, clk, nil, nil)

	ent := &types.CacheEntry{Key: "bots"}
	e.OnWrite(ent)

	clk.Add(8 * time.Second)
	next, replaced := e.OnRead(ent)
	require.True(t, replaced)
	assert.Equal(t, clk.Now().Add(10*time.Second), next.ExpireAt)
	assert.Equal(t, ent.StoredAt, next.StoredAt)
}
