// Package storetest is a conformance suite every store.KV implementation runs.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/store"
)

// Factory opens a store. Calling it again with the same t must reopen the
// same durable data when Durable is true.
type Factory func(t *testing.T) store.KV

// Run executes the suite. durable says whether data must survive Close.
func Run(t *testing.T, open Factory, durable bool) {
	t.Run("GetMissing", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()

		_, err := kv.GetItem(context.Background(), "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		ctx := context.Background()
		kv := open(t)
		defer kv.Close()

		require.NoError(t, kv.SetItem(ctx, "a", []byte("1")))
		require.NoError(t, kv.SetItem(ctx, "a", []byte("2")))

		v, err := kv.GetItem(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		kv := open(t)
		defer kv.Close()

		require.NoError(t, kv.SetItem(ctx, "a", []byte("1")))
		require.NoError(t, kv.RemoveItem(ctx, "a"))
		require.NoError(t, kv.RemoveItem(ctx, "a"))

		_, err := kv.GetItem(ctx, "a")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("GetAllKeys", func(t *testing.T) {
		ctx := context.Background()
		kv := open(t)
		defer kv.Close()

		for _, k := range []string{"q:2", "other", "q:1"} {
			require.NoError(t, kv.SetItem(ctx, k, []byte(k)))
		}
		keys, err := kv.GetAllKeys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"q:1", "q:2", "other"}, keys)
	})

	if !durable {
		return
	}

	t.Run("SurvivesReopen", func(t *testing.T) {
		ctx := context.Background()
		kv := open(t)
		require.NoError(t, kv.SetItem(ctx, "pending", []byte(`{"id":"1"}`)))
		require.NoError(t, kv.Close())

		kv = open(t)
		defer kv.Close()
		v, err := kv.GetItem(ctx, "pending")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1"}`, string(v))
	})
}
