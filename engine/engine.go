package engine

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/expiration"
	"github.com/krisalay/resilient-client/types"
)

/*
CacheEngine is the policy layer of a ResponseCache.
It decides WHAT happens to an entry, never WHERE it is stored.

It decides:
- What time it is (injectable clock, so TTL behaviour is testable)
- When an entry is stale
- How an entry's timestamps change on reads and writes
- Which metrics are recorded

It does NOT:
- Store data
- Handle sharding or locking
- Decide eviction order
*/
type CacheEngine struct {

	// Expiration decides when an entry is stale. Nil means entries never expire.
	Expiration expiration.Strategy

	// Clock is the time source. Production uses the wall clock; tests use clock.Mock.
	Clock clock.Clock

	// Metrics records hits, misses, expirations and evictions.
	Metrics types.Metrics

	Logger *zap.Logger
}

// NewCacheEngine fills every nil collaborator with a working default.
func NewCacheEngine(
	exp expiration.Strategy,
	clk clock.Clock,
	metrics types.Metrics,
	logger *zap.Logger,
) *CacheEngine {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheEngine{
		Expiration: exp,
		Clock:      clk,
		Metrics:    metrics,
		Logger:     logger,
	}
}

func (e *CacheEngine) Now() time.Time {
	return e.Clock.Now()
}

// IsExpired returns false when no expiration strategy is configured.
func (e *CacheEngine) IsExpired(ent *types.CacheEntry) bool {
	return e.Expiration != nil && e.Expiration.IsExpired(ent, e.Now())
}

// OnRead returns the entry that should replace ent after a hit, if any
// (sliding expiry). It also records the hit.
func (e *CacheEngine) OnRead(ent *types.CacheEntry) (types.CacheEntry, bool) {
	e.Metrics.Hit()
	if e.Expiration == nil {
		return *ent, false
	}
	return e.Expiration.OnAccess(*ent, e.Now())
}

// OnWrite stamps a new entry before it becomes visible to readers.
func (e *CacheEngine) OnWrite(ent *types.CacheEntry) {
	now := e.Now()
	if e.Expiration != nil {
		e.Expiration.OnWrite(ent, now)
		return
	}
	ent.StoredAt = now
	ent.LastAccessedAt = now
}

// TTL is zero when entries never expire.
func (e *CacheEngine) TTL() time.Duration {
	if e.Expiration == nil {
		return 0
	}
	return e.Expiration.TTL()
}
