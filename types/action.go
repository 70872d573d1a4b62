package types

import (
	"encoding/json"
	"time"
)

// QueuedAction is a user-initiated write that could not be sent because the
// device was offline. This is the only shape persisted by the offline queue.
type QueuedAction struct {
	ID       string          `json:"id"`
	Seq      uint64          `json:"seq"`
	Type     string          `json:"type"`
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Payload  json.RawMessage `json:"payload,omitempty"`

	// Invalidates lists cache keys whose value changes once this action is
	// delivered (e.g. "bots" after a bot is created).
	Invalidates []string `json:"invalidates,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// WriteStatus tells a caller what happened to its write.
type WriteStatus string

const (
	// StatusDelivered means the backend accepted the write.
	StatusDelivered WriteStatus = "delivered"

	// StatusQueued means the write was durably stored and will be replayed
	// when connectivity returns. It is NOT a success.
	StatusQueued WriteStatus = "queued"
)

// WriteResult is returned for every write routed through the offline coordinator.
type WriteResult struct {
	Status   WriteStatus
	ActionID string

	// Response is the backend response for delivered writes.
	Response any

	// Position is the 1-based queue position for queued writes.
	Position int
}

// ReplayResult summarises one replay pass.
type ReplayResult struct {
	Delivered int
	Remaining int

	// FailedID is the action that stopped the pass, if any.
	FailedID string

	// Err is the reason the pass stopped early. Nil means the queue was drained.
	Err error
}
