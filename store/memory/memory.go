// Package memory is a map-backed store.KV. It does not survive restarts of
// the process, but a single instance can be closed and reopened by tests to
// simulate one.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/krisalay/resilient-client/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failures injected per operation name: "get", "set", "remove", "keys"
	failures map[string]error
}

func New() *Store {
	return &Store{
		data:     make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent op fail with err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["get"]; err != nil {
		return nil, err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["set"]; err != nil {
		return err
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["remove"]; err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

func (s *Store) GetAllKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["keys"]; err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close keeps the data so the same Store can back a "restarted" queue.
func (s *Store) Close() error { return nil }
