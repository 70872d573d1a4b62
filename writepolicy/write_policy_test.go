package writepolicy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/queue"
	"github.com/krisalay/resilient-client/store/memory"
	"github.com/krisalay/resilient-client/types"
)

func TestWriteThrough(t *testing.T) {
	var got []string
	exec := types.ExecutorFunc(func(ctx context.Context, a types.QueuedAction) (any, error) {
		got = append(got, a.Method+" "+a.Endpoint)
		return map[string]bool{"ok": true}, nil
	})

	res, err := NewWriteThroughPolicy(exec, nil).Write(context.Background(),
		types.QueuedAction{ID: "a1", Method: "POST", Endpoint: "/bots/1/start"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelivered, res.Status)
	assert.Equal(t, "a1", res.ActionID)
	assert.Equal(t, map[string]bool{"ok": true}, res.Response)
	assert.Equal(t, []string{"POST /bots/1/start"}, got)
}

func TestWriteThroughFailure(t *testing.T) {
	boom := errors.New("timeout")
	exec := types.ExecutorFunc(func(context.Context, types.QueuedAction) (any, error) { return nil, boom })

	_, err := NewWriteThroughPolicy(exec, nil).Write(context.Background(), types.QueuedAction{ID: "a1"})
	assert.ErrorIs(t, err, boom)
}

func TestQueuePolicy(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	q, err := queue.Open(ctx, kv, "", nil)
	require.NoError(t, err)
	p := NewQueuePolicy(q, nil)

	res, err := p.Write(ctx, types.QueuedAction{ID: "a1", Method: "POST", Endpoint: "/bots/1/start"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusQueued, res.Status)
	assert.Equal(t, 1, res.Position)
	assert.Equal(t, 1, q.Len())

	kv.FailOn("set", errors.New("disk full"))
	_, err = p.Write(ctx, types.QueuedAction{ID: "a2"})
	var qerr *types.QueueError
	assert.ErrorAs(t, err, &qerr)
	assert.Equal(t, 1, q.Len())
}
