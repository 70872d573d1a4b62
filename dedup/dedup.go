// Package dedup collapses concurrent requests for the same resource into one
// physical call.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/resilient-client/types"
)

// Operation is the physical call being shared.
type Operation func(ctx context.Context) (any, error)

// flight marks the call registered for a key by the caller that started it.
type flight struct{}

/*
Deduplicator shares one in-flight call per key.

  - If a call for key is running, Run joins it and returns the same value
    (the same instance) or the same error as every other joined caller.
  - The registration is removed before waiters are released, so a Run that
    starts after the call settled always triggers a fresh call. Replaying
    settled results is the cache's job.
  - Failures are not retried here.
*/
type Deduplicator struct {
	group singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
	flights map[string]*flight

	metrics types.Metrics
	logger  *zap.Logger
}

func New(metrics types.Metrics, logger *zap.Logger) *Deduplicator {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{
		waiters: make(map[string]int),
		flights: make(map[string]*flight),
		metrics: metrics,
		logger:  logger,
	}
}

/*
Run executes op for key, or joins the call already running for key.

op receives a context that keeps ctx's values but not its cancellation: one
caller giving up must not abort the call for the others. A caller whose ctx
is done stops waiting and gets ctx.Err(). op is expected to enforce its own
timeout.
*/
func (d *Deduplicator) Run(ctx context.Context, key string, op Operation) (any, error) {
	detached := context.WithoutCancel(ctx)

	d.mu.Lock()
	d.waiters[key]++
	f, joined := d.flights[key]
	if !joined {
		f = &flight{}
		d.flights[key] = f
	}
	ch := d.group.DoChan(key, func() (any, error) {
		defer d.land(key, f)
		return op(detached)
	})
	d.mu.Unlock()
	defer d.leave(key)

	if joined {
		d.metrics.Shared()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			d.logger.Debug("shared call failed", zap.String("key", key), zap.Error(res.Err))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// land drops the registration of f before its result reaches any caller.
// A flight already forgotten leaves its successor alone.
func (d *Deduplicator) land(key string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flights[key] != f {
		return
	}
	delete(d.flights, key)
	d.group.Forget(key)
}

// Waiters is the number of callers currently waiting on key.
func (d *Deduplicator) Waiters(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiters[key]
}

// Forget drops the registration for key so the next Run starts a new call
// even if the current one has not settled.
func (d *Deduplicator) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.flights, key)
	d.group.Forget(key)
}

// ForgetAll is Forget for every key with a call in flight.
func (d *Deduplicator) ForgetAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.flights {
		delete(d.flights, key)
		d.group.Forget(key)
	}
}

func (d *Deduplicator) leave(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.waiters[key] <= 1 {
		delete(d.waiters, key)
		return
	}
	d.waiters[key]--
}

// Do is the typed form of Run.
func Do[T any](ctx context.Context, d *Deduplicator, key string, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := d.Run(ctx, key, func(ctx context.Context) (any, error) {
		t, err := op(ctx)
		return t, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok && v != nil {
		var zero T
		return zero, fmt.Errorf("dedup %s: got %T, want %T", key, v, zero)
	}
	return t, nil
}
