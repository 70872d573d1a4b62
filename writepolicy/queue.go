package writepolicy

import (
	"context"

	"github.com/krisalay/resilient-client/queue"
	"github.com/krisalay/resilient-client/types"
)

// QueuePolicy appends writes to the durable offline queue.
//
// The result says StatusQueued only after the store accepted the action
// (persist, then acknowledge). A store failure is returned as a
// *types.QueueError and nothing is queued.
type QueuePolicy struct {
	queue   *queue.Queue
	metrics types.Metrics
}

func NewQueuePolicy(q *queue.Queue, metrics types.Metrics) *QueuePolicy {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &QueuePolicy{queue: q, metrics: metrics}
}

func (w *QueuePolicy) Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	stored, pos, err := w.queue.Append(ctx, action)
	if err != nil {
		return types.WriteResult{}, err
	}
	w.metrics.Queued()
	w.metrics.QueueDepth(w.queue.Len())
	return types.WriteResult{
		Status:   types.StatusQueued,
		ActionID: stored.ID,
		Position: pos,
	}, nil
}
