// Package store defines the durable key-value store the offline queue is
// persisted in.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetItem for a missing key.
var ErrNotFound = errors.New("store: key not found")

/*
KV is a durable key-value store that survives process restarts.

It mirrors the platform storage APIs mobile apps persist state with
(getItem / setItem / removeItem / getAllKeys). Keys from unrelated
features share one store, so callers namespace their keys with a prefix.

Each call is atomic on its own. Nothing here spans several keys.
*/
type KV interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
	GetAllKeys(ctx context.Context) ([]string, error)
	Close() error
}

// Kind names a store implementation in configuration.
type Kind string

const (
	KindMemory Kind = "memory"
	KindBadger Kind = "badger"
	KindSQLite Kind = "sqlite"
)
