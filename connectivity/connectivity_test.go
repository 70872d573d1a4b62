package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []Status
}

func (r *recorder) add(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, st)
}

func (r *recorder) onlines() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, 0, len(r.got))
	for _, st := range r.got {
		out = append(out, st.Online)
	}
	return out
}

func TestManual(t *testing.T) {
	m := NewManual(true)
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.add)

	m.Set(false)
	m.Set(true)

	online, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, online)

	apiDown := errors.New("reachability api unavailable")
	m.Fail(apiDown)
	_, err = m.Current(context.Background())
	assert.ErrorIs(t, err, apiDown)

	unsubscribe()
	unsubscribe()
	m.Set(false)

	require.Len(t, rec.got, 3)
	assert.Equal(t, []bool{false, true, false}, rec.onlines())
	assert.ErrorIs(t, rec.got[2].Err, apiDown)
	assert.Zero(t, m.Subscribers())
}

func TestBroadcaster_OrderAndIsolation(t *testing.T) {
	var b Broadcaster
	var order []string
	b.Subscribe(func(Status) { order = append(order, "first") })
	remove := b.Subscribe(func(Status) { order = append(order, "second") })
	b.Subscribe(func(Status) { order = append(order, "third") })

	b.Publish(Status{Online: true})
	remove()
	b.Publish(Status{Online: true})

	assert.Equal(t, []string{"first", "second", "third", "first", "third"}, order)
}

func TestProbe_TransitionsOnlyOnChange(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewProbe(srv.URL+"/health", 5*time.Millisecond, time.Second, nil)
	rec := &recorder{}
	p.Subscribe(rec.add)

	online, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, online)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	healthy.Store(false)
	require.Eventually(t, func() bool { return len(rec.onlines()) == 2 }, time.Second, 5*time.Millisecond)
	healthy.Store(true)
	require.Eventually(t, func() bool { return len(rec.onlines()) == 3 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []bool{true, false, true}, rec.onlines())
}

func TestProbe_UnreachableIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProbe(url, time.Second, 100*time.Millisecond, nil)
	online, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, online)
}

func TestWebSocketMonitor_DropAndReconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32
	kick := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if conns.Add(1) == 1 {
			<-kick
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := NewWebSocketMonitor("ws"+strings.TrimPrefix(srv.URL, "http"), nil,
		WithPingInterval(50*time.Millisecond),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }),
	)
	rec := &recorder{}
	m.Subscribe(rec.add)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { online, _ := m.Current(ctx); return online }, time.Second, 5*time.Millisecond)
	kick <- struct{}{}
	require.Eventually(t, func() bool { return len(rec.onlines()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false, true}, rec.onlines()[:3])

	cancel()
	<-done
	online, _ := m.Current(context.Background())
	assert.False(t, online)
}
