package writepolicy

import (
	"context"

	"github.com/krisalay/resilient-client/types"
)

/*
WritePolicy decides what happens to a user-initiated write.

The offline coordinator picks one per write based on connectivity:
- online  → WriteThroughPolicy: send it now
- offline → QueuePolicy: persist it and report "queued"

Both return a WriteResult so the caller can tell delivered from queued.
*/
type WritePolicy interface {
	Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error)
}
