package types

import "context"

/*
Fetcher is the read side of the remote operation interface.

The resilience layer never builds URLs or headers itself. Callers hand it a
function that knows how to fetch one resource, and the layer decides whether
that function has to run at all:

 1. ResponseCache has a fresh value → the fetcher is not called
 2. Another caller is already fetching the same key → join that call
 3. Otherwise → call the fetcher once and cache the result
*/
type Fetcher func(ctx context.Context) (any, error)

/*
Executor is the write side of the remote operation interface.

It performs one QueuedAction against the backend. It is used twice:
  - directly, when a write is issued while online
  - by the replay pass, when queued writes are delivered after reconnecting

Execute must treat its own timeout as an ordinary failure.
*/
type Executor interface {
	Execute(ctx context.Context, action QueuedAction) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action QueuedAction) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, action QueuedAction) (any, error) {
	return f(ctx, action)
}
