package writepolicy

import (
	"context"

	"github.com/krisalay/resilient-client/types"
)

// WriteThroughPolicy sends every write to the backend immediately.
// A failure is returned to the caller as-is; retrying is the caller's call.
type WriteThroughPolicy struct {
	executor types.Executor
	metrics  types.Metrics
}

func NewWriteThroughPolicy(executor types.Executor, metrics types.Metrics) *WriteThroughPolicy {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &WriteThroughPolicy{executor: executor, metrics: metrics}
}

func (w *WriteThroughPolicy) Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	resp, err := w.executor.Execute(ctx, action)
	if err != nil {
		return types.WriteResult{}, err
	}
	w.metrics.Delivered()
	return types.WriteResult{
		Status:   types.StatusDelivered,
		ActionID: action.ID,
		Response: resp,
	}, nil
}
