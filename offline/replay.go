package offline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/types"
)

/*
ReplayQueue delivers queued actions oldest first until the queue is empty,
an action fails, the coordinator goes OFFLINE or ctx is done.

Delivery is at-least-once: an action leaves the queue only after the backend
accepted it. A failed action stays at the head and blocks the ones behind it,
so causal order (create before update) is never broken. Passes never overlap.
*/
func (c *Coordinator) ReplayQueue(ctx context.Context) (res types.ReplayResult) {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()

	defer func() {
		res.Remaining = c.queue.Len()
		c.metrics.QueueDepth(res.Remaining)

		c.mu.Lock()
		c.passes++
		c.last = res
		c.mu.Unlock()

		c.report(res)
	}()

	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		if !c.IsOnline() {
			res.Err = types.ErrOffline
			return res
		}
		action, ok := c.queue.Peek()
		if !ok {
			return res
		}

		if _, err := c.executor.Execute(ctx, action); err != nil {
			c.metrics.ReplayFailed()
			res.FailedID = action.ID
			res.Err = &types.ReplayError{ActionID: action.ID, Endpoint: action.Endpoint, Err: err}
			return res
		}
		c.metrics.Delivered()
		c.invalidate(action.Invalidates)

		// The backend has it; dropping it from the queue must not be cut short.
		if err := c.queue.Remove(context.WithoutCancel(ctx), action.ID); err != nil {
			res.FailedID = action.ID
			res.Err = err
			return res
		}
		res.Delivered++
	}
}

// LastReplay returns the outcome of the latest pass and how many passes ran.
func (c *Coordinator) LastReplay() (types.ReplayResult, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.passes
}

func (c *Coordinator) report(res types.ReplayResult) {
	fields := []zap.Field{
		zap.Int("delivered", res.Delivered),
		zap.Int("remaining", res.Remaining),
	}
	switch {
	case res.Err == nil:
		if res.Delivered > 0 {
			c.logger.Info("offline queue drained", fields...)
		}
	case res.FailedID != "":
		c.logger.Warn("replay stopped", append(fields, zap.String("id", res.FailedID), zap.Error(res.Err))...)
	default:
		c.logger.Debug("replay interrupted", append(fields, zap.Error(res.Err))...)
	}

	if res.Delivered > 0 {
		c.notify("Offline actions sent",
			fmt.Sprintf("%d sent, %d still waiting", res.Delivered, res.Remaining))
	}
}

// scheduleReplay asks the worker for one more pass. It never blocks.
func (c *Coordinator) scheduleReplay() {
	c.mu.Lock()
	c.pending++
	c.scheduled++
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) takePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == 0 {
		return false
	}
	c.pending--
	return true
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}
		for c.takePending() {
			if c.ctx.Err() != nil {
				return
			}
			c.ReplayQueue(c.ctx)
		}
	}
}
