package types

// This file defines how the resilience layer reports what it is doing.

/*
Metrics is an interface that defines what the layer wants to measure.
Each method represents an event. Components call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when the cache returns a fresh value.
	Hit()

	// Miss is called when the cache has no fresh value for a key.
	Miss()

	// Eviction is called when a key is removed because a shard is full.
	Eviction()

	// Expire is called when a stale entry is removed on lookup.
	Expire()

	// Refresh is called when a refresh-ahead reload is started.
	Refresh()

	// Shared is called when a caller joins an in-flight request instead of
	// starting its own.
	Shared()

	// Queued is called when a write is appended to the offline queue.
	Queued()

	// Delivered is called when a write reaches the backend, directly or on replay.
	Delivered()

	// ReplayFailed is called when a replay pass stops on a failed action.
	ReplayFailed()

	// QueueDepth reports the number of actions waiting in the offline queue.
	QueueDepth(n int)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Components never check for a nil Metrics; they get NoopMetrics instead.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()           {}
func (NoopMetrics) Miss()          {}
func (NoopMetrics) Eviction()      {}
func (NoopMetrics) Expire()        {}
func (NoopMetrics) Refresh()       {}
func (NoopMetrics) Shared()        {}
func (NoopMetrics) Queued()        {}
func (NoopMetrics) Delivered()     {}
func (NoopMetrics) ReplayFailed()  {}
func (NoopMetrics) QueueDepth(int) {}
