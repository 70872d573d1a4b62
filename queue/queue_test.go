package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/store/memory"
	"github.com/krisalay/resilient-client/types"
)

func action(id string) types.QueuedAction {
	return types.QueuedAction{ID: id, Type: "startBot", Endpoint: "/bots/" + id + "/start", Method: "POST"}
}

func ids(actions []types.QueuedAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	q, err := Open(ctx, memory.New(), "", nil)
	require.NoError(t, err)

	for i, id := range []string{"w1", "w2", "w3"} {
		a, pos, err := q.Append(ctx, action(id))
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
		assert.EqualValues(t, i+1, a.Seq)
	}

	assert.Equal(t, []string{"w1", "w2", "w3"}, ids(q.Snapshot()))
	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "w1", head.ID)
}

func TestAppendIsDurableBeforeAck(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	q, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)

	_, _, err = q.Append(ctx, action("w1"))
	require.NoError(t, err)

	keys, err := kv.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPrefix + "action:00000000000000000001"}, keys)
}

func TestAppendFailureLeavesQueueIntact(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	q, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)
	_, _, err = q.Append(ctx, action("w1"))
	require.NoError(t, err)

	kv.FailOn("set", errors.New("disk full"))
	_, _, err = q.Append(ctx, action("w2"))

	var qerr *types.QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "append", qerr.Op)
	assert.Equal(t, []string{"w1"}, ids(q.Snapshot()))

	kv.FailOn("set", nil)
	a, pos, err := q.Append(ctx, action("w3"))
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.EqualValues(t, 2, a.Seq, "failed append does not burn a sequence number")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	q, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)
	for _, id := range []string{"w1", "w2"} {
		_, _, err := q.Append(ctx, action(id))
		require.NoError(t, err)
	}

	kv.FailOn("remove", errors.New("io error"))
	err = q.Remove(ctx, "w1")
	var qerr *types.QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, []string{"w1", "w2"}, ids(q.Snapshot()))

	kv.FailOn("remove", nil)
	require.NoError(t, q.Remove(ctx, "w1"))
	require.NoError(t, q.Remove(ctx, "unknown"))
	assert.Equal(t, []string{"w2"}, ids(q.Snapshot()))

	keys, err := kv.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRestartRestoresQueue(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	q, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)
	for _, id := range []string{"w1", "w2", "w3"} {
		_, _, err := q.Append(ctx, action(id))
		require.NoError(t, err)
	}
	require.NoError(t, q.Remove(ctx, "w1"))

	restarted, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"w2", "w3"}, ids(restarted.Snapshot()))

	a, _, err := restarted.Append(ctx, action("w4"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, a.Seq)
	assert.Equal(t, []string{"w2", "w3", "w4"}, ids(restarted.Snapshot()))
}

func TestOpenIgnoresForeignAndCorruptKeys(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.SetItem(ctx, "auth/token", []byte("secret")))
	require.NoError(t, kv.SetItem(ctx, DefaultPrefix+"action:00000000000000000007", []byte("{not json")))
	require.NoError(t, kv.SetItem(ctx, DefaultPrefix+"action:oops", []byte("{}")))
	require.NoError(t, kv.SetItem(ctx, DefaultPrefix+"action:00000000000000000003", []byte(`{"id":"w3","method":"POST"}`)))

	q, err := Open(ctx, kv, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"w3"}, ids(q.Snapshot()))

	a, _, err := q.Append(ctx, action("w8"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, a.Seq, "sequence continues past the corrupt record")
}

func TestOpenFailsWhenStoreFails(t *testing.T) {
	kv := memory.New()
	kv.FailOn("keys", errors.New("locked"))

	_, err := Open(context.Background(), kv, "", nil)
	var qerr *types.QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "load", qerr.Op)
}
