package offline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/cache"
	"github.com/krisalay/resilient-client/types"
)

/*
CacheRead serves key from the cache for ttl, falling back to fetch.

  - fresh hit: the cached value, no network call
  - miss while ONLINE: one deduplicated fetch, stored on success
  - miss while OFFLINE: types.ErrOfflineNoData, fetch is never called

A failed fetch is returned unchanged and nothing is cached. ttl 0 means the
group's default TTL.
*/
func (c *Coordinator) CacheRead(ctx context.Context, key string, ttl time.Duration, fetch types.Fetcher) (any, error) {
	rc, err := c.caches.ForTTL(ttl)
	if err != nil {
		return nil, err
	}

	if ent, ok := rc.Lookup(key); ok {
		if c.refresh != nil && c.IsOnline() {
			c.refresh.OnRead(ctx, key, ent, rc.Now(), func(ctx context.Context) {
				if _, err := c.load(ctx, rc, key, fetch); err != nil {
					c.logger.Debug("background refresh failed", zap.String("key", key), zap.Error(err))
				}
			})
		}
		return ent.Value, nil
	}

	if !c.IsOnline() {
		return nil, fmt.Errorf("%w: %s", types.ErrOfflineNoData, key)
	}
	return c.load(ctx, rc, key, fetch)
}

// load fetches key once for every concurrent caller. Each caller stores the
// result in the cache for its own TTL, unless the key was invalidated while
// the fetch was running.
func (c *Coordinator) load(ctx context.Context, rc *cache.ResponseCache, key string, fetch types.Fetcher) (any, error) {
	gen := c.caches.Generation(key)
	v, err := c.dedup.Run(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(rc, key, v, gen)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	c.store(rc, key, v, gen)
	return v, nil
}

func (c *Coordinator) store(rc *cache.ResponseCache, key string, v any, gen uint64) {
	if !c.caches.SetIfUnchanged(rc, key, v, gen) {
		c.logger.Debug("fetched value invalidated in flight, not cached", zap.String("key", key))
	}
}

// Read is CacheRead for callers that know the response type.
func Read[T any](ctx context.Context, c *Coordinator, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.CacheRead(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok && v != nil {
		return zero, fmt.Errorf("offline: cached %q holds %T, want %T", key, v, zero)
	}
	return t, nil
}
