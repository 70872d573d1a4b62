package cache

import (
	"sync"
	"time"
)

/*
Group hands out one ResponseCache per distinct TTL.

A ResponseCache has exactly one TTL, but reads ask for different freshness
windows (dashboard stats for seconds, strategy lists for minutes). Group keeps
the one-TTL rule and lets every read name its own window.
*/
type Group struct {
	base Options

	mu     sync.RWMutex
	caches map[time.Duration]*ResponseCache

	// generations move on every invalidation; epoch covers InvalidateAll.
	genMu sync.Mutex
	gens  map[string]uint64
	epoch uint64
}

// NewGroup validates base by building the default-TTL cache eagerly.
func NewGroup(base Options) (*Group, error) {
	g := &Group{
		base:   base,
		caches: make(map[time.Duration]*ResponseCache),
		gens:   make(map[string]uint64),
	}
	if _, err := g.ForTTL(base.TTL); err != nil {
		return nil, err
	}
	return g, nil
}

// Default is the cache configured with the base TTL.
func (g *Group) Default() *ResponseCache {
	c, _ := g.ForTTL(g.base.TTL)
	return c
}

// DefaultTTL is the TTL used when a read does not ask for one.
func (g *Group) DefaultTTL() time.Duration {
	return g.base.TTL
}

// ForTTL returns the cache for ttl, creating it on first use.
// A zero ttl selects the default cache.
func (g *Group) ForTTL(ttl time.Duration) (*ResponseCache, error) {
	if ttl == 0 {
		ttl = g.base.TTL
	}

	g.mu.RLock()
	c, ok := g.caches[ttl]
	g.mu.RUnlock()
	if ok {
		return c, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.caches[ttl]; ok {
		return c, nil
	}

	opts := g.base
	opts.TTL = ttl
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	g.caches[ttl] = c
	return c, nil
}

// Invalidate removes key from every cache in the group.
func (g *Group) Invalidate(key string) {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	g.gens[key]++
	for _, c := range g.members() {
		c.Invalidate(key)
	}
}

// InvalidateAll empties every cache in the group.
func (g *Group) InvalidateAll() {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	g.epoch++
	for _, c := range g.members() {
		c.InvalidateAll()
	}
}

// Generation identifies the invalidation state of key. Read it before a
// fetch and hand it to SetIfUnchanged afterwards.
func (g *Group) Generation(key string) uint64 {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	return g.epoch + g.gens[key]
}

// SetIfUnchanged stores value in rc unless key was invalidated since gen was
// read. A fetch that raced a write must not put the old value back.
func (g *Group) SetIfUnchanged(rc *ResponseCache, key string, value any, gen uint64) bool {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	if g.epoch+g.gens[key] != gen {
		return false
	}
	rc.Set(key, value)
	return true
}

func (g *Group) members() []*ResponseCache {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*ResponseCache, 0, len(g.caches))
	for _, c := range g.caches {
		out = append(out, c)
	}
	return out
}
