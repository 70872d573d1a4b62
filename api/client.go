package api

import (
	"context"
	"time"

	"github.com/krisalay/resilient-client/types"
)

/*
Client defines the PUBLIC API the rest of the app uses for remote data.
It is a contract that guarantees certain behaviors without exposing internals.
Caching, request deduplication, the offline queue and connectivity tracking
are all hidden behind this interface.
*/
type Client interface {

	/*
		Fetch returns the value for key, calling fetch only when needed.

		BEHAVIOR:
		-------------------
		1. Fresh cached value (younger than ttl):
		   - Returned immediately, no network call

		2. No fresh value and ONLINE:
		   - Concurrent callers for the same key share ONE fetch
		   - A successful result is cached and returned to all of them
		   - A failure is returned to all of them and nothing is cached

		3. No fresh value and OFFLINE:
		   - Fails with types.ErrOfflineNoData (never hangs)

		ttl 0 uses the configured default TTL.
	*/
	Fetch(ctx context.Context, key string, ttl time.Duration, fetch types.Fetcher) (any, error)

	/*
		Get is Fetch for a GET of endpoint on the configured backend,
		cached under the endpoint itself.
	*/
	Get(ctx context.Context, endpoint string, ttl time.Duration) (any, error)

	/*
		Write performs a user-initiated write.

		BEHAVIOR:
		---------
		- ONLINE: sent now. Result status is "delivered"; a failure is
		  returned and NOT queued
		- OFFLINE: durably queued. Result status is "queued", which is NOT a
		  success; it will be replayed in order when connectivity returns

		Keys in action.Invalidates are dropped from the cache once the write
		reaches the backend.
	*/
	Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error)

	/*
		Enqueue queues action even while online. It returns only after the
		action is durably stored.
	*/
	Enqueue(ctx context.Context, action types.QueuedAction) (types.WriteResult, error)

	/*
		Replay delivers queued writes now, oldest first, stopping at the
		first failure. Reconnects trigger this automatically; call it for a
		manual "retry now".
	*/
	Replay(ctx context.Context) types.ReplayResult

	// Pending lists queued writes in replay order.
	Pending() []types.QueuedAction

	/*
		Invalidate removes key from every cache. InvalidateAll clears
		everything (e.g. on logout).

		This operation is idempotent:
		- Removing a non-existing key is safe
	*/
	Invalidate(key string)
	InvalidateAll()

	IsOnline() bool

	/*
		AddListener registers fn for connectivity transitions. It receives
		the new state on every transition. Unsubscribing is explicit: call
		the returned function.
	*/
	AddListener(fn func(online bool)) (remove func())

	/*
		Close shuts the client down.

		BEHAVIOR:
		---------
		- Stops the replay worker and connectivity monitors
		- Closes the durable store
		- Queued writes stay on disk for the next start
	*/
	Close() error
}
