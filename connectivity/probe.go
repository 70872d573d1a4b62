package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

/*
Probe polls an HTTP health endpoint and reports reachability.

Any response below 500 means the backend is reachable. Transport errors,
timeouts and 5xx mean offline. A transition is published only when the
result changes.
*/
type Probe struct {
	Broadcaster

	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger

	mu     sync.Mutex
	known  bool
	online bool
}

func NewProbe(url string, interval, timeout time.Duration, logger *zap.Logger) *Probe {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Current performs a probe now.
func (p *Probe) Current(ctx context.Context) (bool, error) {
	online := p.check(ctx)
	p.record(online)
	return online, nil
}

// Run probes every interval until ctx is done.
func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.record(p.check(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Warn("bad probe url", zap.String("url", p.url), zap.Error(err))
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", zap.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (p *Probe) record(online bool) {
	p.mu.Lock()
	changed := !p.known || p.online != online
	p.known = true
	p.online = online
	p.mu.Unlock()

	if changed {
		p.logger.Info("connectivity changed", zap.Bool("online", online))
		p.Publish(Status{Online: online})
	}
}
