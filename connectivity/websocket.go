package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

/*
WebSocketMonitor derives connectivity from the app's live update stream.

The trading backend pushes prices and bot events over a WebSocket. While that
socket is open and answering pings the device is online; when it drops the
device is offline until a reconnect succeeds. Reconnects back off
exponentially so a dead network does not drain the battery.
*/
type WebSocketMonitor struct {
	Broadcaster

	url          string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	newBackOff   func() backoff.BackOff
	logger       *zap.Logger

	mu     sync.Mutex
	online bool
}

type WebSocketOption func(*WebSocketMonitor)

// WithPingInterval sets how often the monitor pings; two missed pongs mean offline.
func WithPingInterval(d time.Duration) WebSocketOption {
	return func(m *WebSocketMonitor) { m.pingInterval = d }
}

// WithBackOff replaces the reconnect policy.
func WithBackOff(fn func() backoff.BackOff) WebSocketOption {
	return func(m *WebSocketMonitor) { m.newBackOff = fn }
}

func NewWebSocketMonitor(url string, logger *zap.Logger, opts ...WebSocketOption) *WebSocketMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &WebSocketMonitor{
		url:          url,
		dialer:       websocket.DefaultDialer,
		pingInterval: 15 * time.Second,
		logger:       logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current is the last observed state; offline until the first connect.
func (m *WebSocketMonitor) Current(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, nil
}

// Run keeps a connection open until ctx is done.
func (m *WebSocketMonitor) Run(ctx context.Context) {
	b := m.newBackOff()

	for ctx.Err() == nil {
		conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			m.set(false)
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				m.logger.Warn("giving up on websocket reconnects", zap.Error(err))
				return
			}
			m.logger.Debug("websocket dial failed", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		b.Reset()
		m.set(true)
		err = m.hold(ctx, conn)
		m.set(false)
		if ctx.Err() == nil {
			m.logger.Info("websocket dropped", zap.Error(err))
		}
	}
}

// hold reads until the connection fails, pinging to detect half-open sockets.
func (m *WebSocketMonitor) hold(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	deadline := func() time.Time { return time.Now().Add(2 * m.pingInterval) }
	_ = conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(m.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.pingInterval)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(deadline())
	}
}

func (m *WebSocketMonitor) set(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if changed {
		m.logger.Info("connectivity changed", zap.Bool("online", online))
		m.Publish(Status{Online: online})
	}
}
