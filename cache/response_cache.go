package cache

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/engine"
	"github.com/krisalay/resilient-client/eviction"
	"github.com/krisalay/resilient-client/expiration"
	"github.com/krisalay/resilient-client/shard"
	"github.com/krisalay/resilient-client/types"
)

// Options configures one ResponseCache. A cache has exactly one TTL.
type Options struct {
	TTL time.Duration

	// Shards defaults to 4.
	Shards int

	// MaxEntries bounds the cache; zero means unbounded. It is divided across shards.
	MaxEntries int

	Eviction   eviction.PolicyType
	Expiration expiration.Kind

	Clock   clock.Clock
	Metrics types.Metrics
	Logger  *zap.Logger
}

/*
ResponseCache serves previously fetched responses for a bounded time window.

It connects:
- shards (lock-free reads, per-shard write mutex)
- the engine (clock, expiry rules, metrics)
- eviction (optional capacity bound)

A lookup never returns a stale value, and never returns an error:
absent is a normal result.
*/
type ResponseCache struct {
	shards   []*shard.Shard
	engine   *engine.CacheEngine
	selector shard.Selector
}

// New is the "configure(ttl)" step: the TTL is fixed for the cache's lifetime.
func New(opts Options) (*ResponseCache, error) {
	if opts.TTL < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative, got %s", opts.TTL)
	}
	if opts.Shards <= 0 {
		opts.Shards = 4
	}

	exp, err := expiration.New(opts.Expiration, opts.TTL)
	if err != nil {
		return nil, err
	}

	perShard := 0
	if opts.MaxEntries > 0 {
		perShard = (opts.MaxEntries + opts.Shards - 1) / opts.Shards
	}

	s := make([]*shard.Shard, opts.Shards)
	for i := range s {
		var ev eviction.Policy
		if perShard > 0 {
			if ev, err = eviction.NewEvictionPolicy(opts.Eviction); err != nil {
				return nil, err
			}
		}
		s[i] = shard.NewShard(ev, perShard)
	}

	return &ResponseCache{
		shards:   s,
		engine:   engine.NewCacheEngine(exp, opts.Clock, opts.Metrics, opts.Logger),
		selector: shard.HashSelector{},
	}, nil
}

// Get returns the cached value for key if it is still fresh.
func (c *ResponseCache) Get(key string) (any, bool) {
	ent, ok := c.Lookup(key)
	if !ok {
		return nil, false
	}
	return ent.Value, true
}

/*
Lookup returns a copy of the fresh entry for key.

A stale entry is removed as part of the same lookup. The removal happens under
the shard mutex and only if the stored entry is still the stale one we saw, so
a value written concurrently by Set is never thrown away.
*/
func (c *ResponseCache) Lookup(key string) (types.CacheEntry, bool) {
	sh := c.selector.Select(key, c.shards)

	ent, ok := sh.Store.Get(key)
	if !ok {
		c.engine.Metrics.Miss()
		return types.CacheEntry{}, false
	}

	if !c.engine.IsExpired(ent) {
		return c.hit(sh, key, ent), true
	}

	current, ok := c.evictStale(sh, key, ent)
	if !ok {
		c.engine.Metrics.Miss()
		return types.CacheEntry{}, false
	}
	return c.hit(sh, key, current), true
}

// evictStale deletes observed if it is still stored and stale. It returns the
// entry that replaced it when a concurrent Set stored a fresh one.
func (c *ResponseCache) evictStale(sh *shard.Shard, key string, observed *types.CacheEntry) (*types.CacheEntry, bool) {
	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	current, ok := sh.Store.Get(key)
	if !ok {
		return nil, false
	}
	if current != observed && !c.engine.IsExpired(current) {
		return current, true
	}

	sh.Store.Delete(key)
	if sh.Eviction != nil {
		sh.Eviction.Remove(key)
	}
	c.engine.Metrics.Expire()
	c.engine.Logger.Debug("evicted stale entry", zap.String("key", key))
	return nil, false
}

func (c *ResponseCache) hit(sh *shard.Shard, key string, ent *types.CacheEntry) types.CacheEntry {
	next, changed := c.engine.OnRead(ent)
	if !changed && sh.Eviction == nil {
		return next
	}

	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	if changed {
		// Only replace the entry we read; a newer Set wins.
		if current, ok := sh.Store.Get(key); ok && current == ent {
			sh.Store.Put(key, &next)
		}
	}
	if sh.Eviction != nil {
		sh.Eviction.OnGet(key)
	}
	return next
}

// Set stores value under key, replacing any previous entry, with StoredAt = now.
func (c *ResponseCache) Set(key string, value any) {
	sh := c.selector.Select(key, c.shards)

	ent := &types.CacheEntry{Key: key, Value: value}
	c.engine.OnWrite(ent)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if sh.Full(key) {
		if victim := sh.Eviction.Evict(); victim != "" {
			sh.Store.Delete(victim)
			c.engine.Metrics.Eviction()
		}
	}

	sh.Store.Put(key, ent)
	if sh.Eviction != nil {
		sh.Eviction.OnPut(key)
	}
}

// Invalidate removes key. Removing a missing key is a no-op.
func (c *ResponseCache) Invalidate(key string) {
	sh := c.selector.Select(key, c.shards)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	sh.Store.Delete(key)
	if sh.Eviction != nil {
		sh.Eviction.Remove(key)
	}
}

// InvalidateAll empties the cache, e.g. on logout.
func (c *ResponseCache) InvalidateAll() {
	for _, sh := range c.shards {
		sh.Mu.Lock()
		sh.Store.Clear()
		if sh.Eviction != nil {
			sh.Eviction.Reset()
		}
		sh.Mu.Unlock()
	}
}

// Len counts stored entries, including stale ones not yet looked up.
func (c *ResponseCache) Len() int {
	n := 0
	for _, sh := range c.shards {
		n += int(sh.Store.Size())
	}
	return n
}

func (c *ResponseCache) TTL() time.Duration {
	return c.engine.TTL()
}

// Now is the cache's notion of the current time.
func (c *ResponseCache) Now() time.Time {
	return c.engine.Now()
}
