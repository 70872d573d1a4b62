// Package queue is the durable FIFO of writes issued while offline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/store"
	"github.com/krisalay/resilient-client/types"
)

// DefaultPrefix namespaces queue keys inside a shared store.
const DefaultPrefix = "@resilient/offline:"

const actionSegment = "action:"

/*
Queue is an ordered list of QueuedActions mirrored in a store.KV.

Layout in the store:

	<prefix>action:00000000000000000001 → JSON QueuedAction
	<prefix>action:00000000000000000002 → JSON QueuedAction

Every action has its own key, so an append and a removal never rewrite the
same record and cannot lose each other's update. Insertion order is the
zero-padded sequence number, which sorts lexically.

Every mutation holds the queue mutex across the store call and touches memory
only after the store accepted the change. A failed store call leaves the
queue exactly as it was.
*/
type Queue struct {
	kv     store.KV
	prefix string
	logger *zap.Logger

	mu    sync.Mutex
	items []types.QueuedAction
	next  uint64
}

// Open restores the queue persisted under prefix. Records that cannot be
// decoded are logged and skipped; they stay in the store untouched.
func Open(ctx context.Context, kv store.KV, prefix string, logger *zap.Logger) (*Queue, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{kv: kv, prefix: prefix, logger: logger, next: 1}

	keys, err := kv.GetAllKeys(ctx)
	if err != nil {
		return nil, &types.QueueError{Op: "load", Key: prefix, Err: err}
	}

	base := prefix + actionSegment
	for _, key := range keys {
		if !strings.HasPrefix(key, base) {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimPrefix(key, base), 10, 64)
		if err != nil {
			logger.Warn("skipping queue key with bad sequence", zap.String("key", key))
			continue
		}
		if seq >= q.next {
			q.next = seq + 1
		}

		raw, err := kv.GetItem(ctx, key)
		if err != nil {
			return nil, &types.QueueError{Op: "load", Key: key, Err: err}
		}
		var action types.QueuedAction
		if err := json.Unmarshal(raw, &action); err != nil {
			logger.Error("skipping undecodable queued action", zap.String("key", key), zap.Error(err))
			continue
		}
		action.Seq = seq
		q.items = append(q.items, action)
	}

	sort.Slice(q.items, func(i, j int) bool { return q.items[i].Seq < q.items[j].Seq })

	logger.Debug("offline queue restored", zap.Int("pending", len(q.items)))
	return q, nil
}

func (q *Queue) key(seq uint64) string {
	return fmt.Sprintf("%s%s%020d", q.prefix, actionSegment, seq)
}

// Append persists action at the tail and returns it with its sequence number
// and 1-based position. The action is queued only once the store has it.
func (q *Queue) Append(ctx context.Context, action types.QueuedAction) (types.QueuedAction, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	action.Seq = q.next
	key := q.key(action.Seq)

	raw, err := json.Marshal(action)
	if err != nil {
		return types.QueuedAction{}, 0, fmt.Errorf("%w: %v", types.ErrInvalidAction, err)
	}
	if err := q.kv.SetItem(ctx, key, raw); err != nil {
		return types.QueuedAction{}, 0, &types.QueueError{Op: "append", Key: key, Err: err}
	}

	q.next++
	q.items = append(q.items, action)
	return action, len(q.items), nil
}

// Peek returns the head of the queue.
func (q *Queue) Peek() (types.QueuedAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return types.QueuedAction{}, false
	}
	return q.items[0], true
}

// Remove deletes the action with id from the store, then from memory.
// Removing an unknown id is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, a := range q.items {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	key := q.key(q.items[idx].Seq)
	if err := q.kv.RemoveItem(ctx, key); err != nil {
		return &types.QueueError{Op: "remove", Key: key, Err: err}
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	return nil
}

// Snapshot returns the queued actions in replay order.
func (q *Queue) Snapshot() []types.QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.QueuedAction, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
