// This file defines the idea of a "refresh hook".
// The hook runs when a read is served from the cache, and may start a
// background reload so the value is renewed before it goes stale.

package refresh

import (
	"context"
	"time"

	"github.com/krisalay/resilient-client/types"
)

// Reload refetches the value for the key that was just served and stores it.
type Reload func(ctx context.Context)

/*
Hook is called after every cache hit on the read path.
It MUST be fast and non-blocking: the caller already has its value and is
waiting to render it. Any network work belongs on another goroutine.
*/
type Hook interface {
	OnRead(ctx context.Context, key string, ent types.CacheEntry, now time.Time, reload Reload)
}

/*
AheadHook refreshes an entry once it has used Threshold of its lifetime.

With a 30s TTL and Threshold 0.8, a read at 24s returns the cached value
instantly and starts a reload in the background, so a dashboard polled every
few seconds never sees a miss.
*/
type AheadHook struct {
	Threshold float64
	Metrics   types.Metrics
}

func NewAheadHook(threshold float64, metrics types.Metrics) *AheadHook {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &AheadHook{Threshold: threshold, Metrics: metrics}
}

func (h *AheadHook) OnRead(ctx context.Context, key string, ent types.CacheEntry, now time.Time, reload Reload) {
	if !h.due(ent, now) {
		return
	}
	h.Metrics.Refresh()
	go reload(context.WithoutCancel(ctx))
}

func (h *AheadHook) due(ent types.CacheEntry, now time.Time) bool {
	if h.Threshold <= 0 || h.Threshold >= 1 || ent.ExpireAt.IsZero() {
		return false
	}
	lifetime := ent.ExpireAt.Sub(ent.StoredAt)
	if lifetime <= 0 {
		return false
	}
	return float64(ent.Age(now)) >= h.Threshold*float64(lifetime)
}
