package badger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/store"
	"github.com/krisalay/resilient-client/store/storetest"
)

func TestConformance(t *testing.T) {
	var mu sync.Mutex
	dirs := map[*testing.T]string{}

	storetest.Run(t, func(t *testing.T) store.KV {
		mu.Lock()
		dir, ok := dirs[t]
		if !ok {
			dir = filepath.Join(t.TempDir(), "queue")
			dirs[t] = dir
		}
		mu.Unlock()

		s, err := Open(dir, nil)
		require.NoError(t, err)
		return s
	}, true)
}

func TestInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.KV {
		s, err := Open("", nil)
		require.NoError(t, err)
		return s
	}, false)
}
