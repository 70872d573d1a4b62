package offline

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/types"
)

// Write sends action now when ONLINE and queues it when OFFLINE.
//
// A delivered write invalidates the cache keys it names. A write that fails
// while ONLINE is returned to the caller and is NOT queued.
func (c *Coordinator) Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	action, err := c.prepare(action)
	if err != nil {
		return types.WriteResult{}, err
	}
	if !c.IsOnline() {
		return c.enqueue(ctx, action)
	}

	res, err := c.direct.Write(ctx, action)
	if err != nil {
		return types.WriteResult{}, err
	}
	c.invalidate(action.Invalidates)
	return res, nil
}

/*
EnqueueWrite durably queues action regardless of connectivity.

The result is returned only after the store accepted the action. If the
coordinator is ONLINE when this is called, a replay pass is scheduled so the
action is not left waiting for the next reconnect.
*/
func (c *Coordinator) EnqueueWrite(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	action, err := c.prepare(action)
	if err != nil {
		return types.WriteResult{}, err
	}
	res, err := c.enqueue(ctx, action)
	if err != nil {
		return res, err
	}
	if c.IsOnline() {
		c.scheduleReplay()
	}
	return res, nil
}

func (c *Coordinator) enqueue(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	res, err := c.deferred.Write(ctx, action)
	if err != nil {
		c.logger.Error("could not queue write",
			zap.String("id", action.ID), zap.String("endpoint", action.Endpoint), zap.Error(err))
		return types.WriteResult{}, err
	}
	c.logger.Info("write queued",
		zap.String("id", res.ActionID), zap.String("type", action.Type), zap.Int("position", res.Position))
	c.notify("Saved for later", fmt.Sprintf("%s will be sent when you are back online", describe(action)))
	return res, nil
}

// prepare fills the identity fields. The ID doubles as the idempotency key
// on delivery, so a caller retrying the same action should reuse it.
func (c *Coordinator) prepare(action types.QueuedAction) (types.QueuedAction, error) {
	if strings.TrimSpace(action.Endpoint) == "" {
		return action, fmt.Errorf("%w: endpoint is required", types.ErrInvalidAction)
	}
	action.Method = strings.ToUpper(action.Method)
	if action.Method == "" {
		action.Method = http.MethodPost
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.EnqueuedAt.IsZero() {
		action.EnqueuedAt = c.caches.Default().Now()
	}
	return action, nil
}

// Invalidate drops key from every cache. A fetch of key still in flight is
// detached first, so later reads fetch again and its result is not stored.
func (c *Coordinator) Invalidate(key string) {
	c.dedup.Forget(key)
	c.caches.Invalidate(key)
}

// InvalidateAll is Invalidate for every key, as on logout.
func (c *Coordinator) InvalidateAll() {
	c.dedup.ForgetAll()
	c.caches.InvalidateAll()
}

func (c *Coordinator) invalidate(keys []string) {
	for _, k := range keys {
		c.Invalidate(k)
	}
}

func describe(action types.QueuedAction) string {
	if action.Type != "" {
		return action.Type
	}
	return action.Method + " " + action.Endpoint
}
