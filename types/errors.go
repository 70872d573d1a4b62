package types

import (
	"errors"
	"fmt"
)

var (
	// ErrOfflineNoData is returned when a read happens while offline and no
	// fresh cached value exists. The UI shows "offline, no data" for it
	// rather than "request failed".
	ErrOfflineNoData = errors.New("offline: no cached data")

	// ErrOffline is returned by operations that need connectivity.
	ErrOffline = errors.New("offline")

	// ErrInvalidAction is returned when an action cannot be queued.
	ErrInvalidAction = errors.New("invalid action")
)

// QueueError reports that the durable store rejected a queue mutation.
// The mutation did not happen; the rest of the queue is untouched.
type QueueError struct {
	Op  string // "append", "remove", "load"
	Key string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// ReplayError reports the queued action that stopped a replay pass.
type ReplayError struct {
	ActionID string
	Endpoint string
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay %s (%s): %v", e.ActionID, e.Endpoint, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
