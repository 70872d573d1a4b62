// Package connectivity turns platform reachability signals into
// online/offline transitions.
package connectivity

import (
	"context"
	"slices"
	"sync"
)

// Status is one delivery from a connectivity source. A non-nil Err means the
// source itself failed and Online carries no information.
type Status struct {
	Online bool
	Err    error
}

/*
Source is a subscribable network-reachability signal.

The resilience layer only needs "connected / not connected". Transport
details (wifi vs cellular, signal strength) stay on the platform side.
*/
type Source interface {
	// Current reports the state right now.
	Current(ctx context.Context) (bool, error)

	// Subscribe registers fn for every delivery. The returned function removes
	// the subscription; nothing is removed implicitly.
	Subscribe(fn func(Status)) (unsubscribe func())
}

// Broadcaster fans a Status out to subscribers. Sources embed it.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uint64]func(Status)
	next uint64
}

func (b *Broadcaster) Subscribe(fn func(Status)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uint64]func(Status))
	}
	id := b.next
	b.next++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every subscriber outside the lock, in subscription order.
func (b *Broadcaster) Publish(st Status) {
	b.mu.Lock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Status), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// Subscribers is the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Manual is a Source driven by the application (or a test).
type Manual struct {
	Broadcaster

	mu     sync.Mutex
	online bool
	err    error
}

func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

func (m *Manual) Current(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.err
}

// Set records the new state and publishes it, even if unchanged.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	m.online = online
	m.err = nil
	m.mu.Unlock()
	m.Publish(Status{Online: online})
}

// Fail simulates the platform API erroring: Current returns err and
// subscribers get a failed delivery.
func (m *Manual) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	m.Publish(Status{Err: err})
}
