// Package resilient is the composition root: it builds the cache, the
// deduplicator and the offline coordinator from configuration and exposes
// them through api.Client.
package resilient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/api"
	"github.com/krisalay/resilient-client/cache"
	"github.com/krisalay/resilient-client/config"
	"github.com/krisalay/resilient-client/connectivity"
	"github.com/krisalay/resilient-client/dedup"
	"github.com/krisalay/resilient-client/eviction"
	"github.com/krisalay/resilient-client/expiration"
	"github.com/krisalay/resilient-client/logging"
	"github.com/krisalay/resilient-client/metrics"
	"github.com/krisalay/resilient-client/offline"
	"github.com/krisalay/resilient-client/platform"
	"github.com/krisalay/resilient-client/queue"
	"github.com/krisalay/resilient-client/refresh"
	"github.com/krisalay/resilient-client/remote"
	"github.com/krisalay/resilient-client/store"
	"github.com/krisalay/resilient-client/store/badger"
	"github.com/krisalay/resilient-client/store/memory"
	"github.com/krisalay/resilient-client/store/sqlite"
	"github.com/krisalay/resilient-client/types"
)

var _ api.Client = (*Client)(nil)

type options struct {
	logger    *zap.Logger
	metrics   types.Metrics
	registry  prometheus.Registerer
	kv        store.KV
	executor  types.Executor
	fetcher   func(endpoint string) types.Fetcher
	source    connectivity.Source
	clock     clock.Clock
	notifier  platform.Notifier
	scheduler platform.Scheduler
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics overrides the metrics built from config.
func WithMetrics(m types.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithRegisterer registers Prometheus metrics somewhere other than the
// default registry. Only used when metrics are enabled.
func WithRegisterer(r prometheus.Registerer) Option { return func(o *options) { o.registry = r } }

// WithStore uses kv for the offline queue. The caller keeps ownership:
// Close does not close it.
func WithStore(kv store.KV) Option { return func(o *options) { o.kv = kv } }

// WithExecutor replaces the HTTP executor for writes. Get still needs a
// fetcher; see WithFetcher.
func WithExecutor(e types.Executor) Option { return func(o *options) { o.executor = e } }

// WithFetcher replaces how Get reads an endpoint.
func WithFetcher(fn func(endpoint string) types.Fetcher) Option {
	return func(o *options) { o.fetcher = fn }
}

func WithSource(s connectivity.Source) Option { return func(o *options) { o.source = s } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithNotifier(n platform.Notifier) Option { return func(o *options) { o.notifier = n } }

func WithScheduler(s platform.Scheduler) Option { return func(o *options) { o.scheduler = s } }

/*
Client wires every component for one app session.

There is no package-level instance: build one Client at startup and pass it
to whatever needs remote data.
*/
type Client struct {
	coord   *offline.Coordinator
	caches  *cache.Group
	fetcher func(endpoint string) types.Fetcher
	logger  *zap.Logger

	kv        store.KV
	ownsKV    bool
	scheduler *platform.TickerScheduler
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New builds and starts a Client. A nil cfg means config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Logging); err != nil {
			return nil, err
		}
	}

	m := o.metrics
	if m == nil {
		if cfg.Metrics.Enabled {
			reg := o.registry
			if reg == nil {
				reg = prometheus.DefaultRegisterer
			}
			m = metrics.New(reg)
		} else {
			m = types.NoopMetrics{}
		}
	}

	c := &Client{logger: logger, kv: o.kv}
	if c.kv == nil {
		kv, err := openStore(ctx, cfg.Store, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		c.kv, c.ownsKV = kv, true
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	coord, err := c.build(ctx, runCtx, cfg, o, m)
	if err != nil {
		c.release()
		return nil, err
	}
	if err := coord.Start(ctx); err != nil {
		coord.Close()
		c.release()
		return nil, err
	}
	c.coord = coord
	return c, nil
}

func (c *Client) build(ctx, runCtx context.Context, cfg *config.Config, o *options, m types.Metrics) (*offline.Coordinator, error) {
	logger := c.logger

	q, err := queue.Open(ctx, c.kv, cfg.Offline.QueuePrefix, logger.Named("queue"))
	if err != nil {
		return nil, err
	}

	c.caches, err = cache.NewGroup(cache.Options{
		TTL:        cfg.Cache.TTL,
		Shards:     cfg.Cache.Shards,
		MaxEntries: cfg.Cache.MaxEntries,
		Eviction:   eviction.PolicyType(strings.ToUpper(cfg.Cache.Eviction)),
		Expiration: expiration.Kind(cfg.Cache.Expiration),
		Clock:      o.clock,
		Metrics:    m,
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	var hook refresh.Hook
	if cfg.Cache.RefreshAhead > 0 {
		hook = refresh.NewAheadHook(cfg.Cache.RefreshAhead, m)
	}

	var httpExec *remote.HTTPExecutor
	if o.executor == nil || o.fetcher == nil {
		var ropts []remote.Option
		for k, v := range cfg.Remote.Headers {
			ropts = append(ropts, remote.WithHeader(k, v))
		}
		httpExec = remote.NewHTTPExecutor(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger.Named("remote"), ropts...)
	}
	executor := o.executor
	if executor == nil {
		executor = httpExec
	}
	c.fetcher = o.fetcher
	if c.fetcher == nil {
		c.fetcher = httpExec.Fetcher
	}

	source := o.source
	if source == nil {
		source = startSource(runCtx, cfg.Connectivity, logger.Named("connectivity"))
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = platform.Noop{}
		if cfg.Offline.Notify {
			notifier = platform.LogNotifier{Logger: logger.Named("notify")}
		}
	}

	scheduler := o.scheduler
	if scheduler == nil {
		c.scheduler = &platform.TickerScheduler{Logger: logger.Named("scheduler")}
		scheduler = c.scheduler
	}

	return offline.New(offline.Config{
		Queue:         q,
		Caches:        c.caches,
		Executor:      executor,
		Source:        source,
		Dedup:         dedup.New(m, logger.Named("dedup")),
		Refresh:       hook,
		Notifier:      notifier,
		Scheduler:     scheduler,
		RetryInterval: cfg.Offline.RetryInterval,
		Metrics:       m,
		Logger:        logger.Named("offline"),
	})
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.KV, error) {
	switch store.Kind(cfg.Kind) {
	case store.KindMemory, "":
		return memory.New(), nil
	case store.KindBadger:
		return badger.Open(cfg.Path, logger)
	case store.KindSQLite:
		return sqlite.Open(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// startSource builds the configured connectivity source and runs its
// monitor until runCtx is cancelled.
func startSource(runCtx context.Context, cfg config.ConnectivityConfig, logger *zap.Logger) connectivity.Source {
	switch cfg.Mode {
	case "probe":
		p := connectivity.NewProbe(cfg.URL, cfg.Interval, cfg.Timeout, logger)
		go p.Run(runCtx)
		return p
	case "websocket":
		m := connectivity.NewWebSocketMonitor(cfg.URL, logger, connectivity.WithPingInterval(cfg.Interval))
		go m.Run(runCtx)
		return m
	default:
		return connectivity.NewManual(cfg.StartOnline)
	}
}

func (c *Client) Fetch(ctx context.Context, key string, ttl time.Duration, fetch types.Fetcher) (any, error) {
	return c.coord.CacheRead(ctx, key, ttl, fetch)
}

func (c *Client) Get(ctx context.Context, endpoint string, ttl time.Duration) (any, error) {
	return c.coord.CacheRead(ctx, endpoint, ttl, c.fetcher(endpoint))
}

func (c *Client) Write(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	return c.coord.Write(ctx, action)
}

func (c *Client) Enqueue(ctx context.Context, action types.QueuedAction) (types.WriteResult, error) {
	return c.coord.EnqueueWrite(ctx, action)
}

func (c *Client) Replay(ctx context.Context) types.ReplayResult {
	return c.coord.ReplayQueue(ctx)
}

func (c *Client) Pending() []types.QueuedAction {
	return c.coord.Pending()
}

func (c *Client) Invalidate(key string) {
	c.coord.Invalidate(key)
}

func (c *Client) InvalidateAll() {
	c.coord.InvalidateAll()
}

func (c *Client) IsOnline() bool {
	return c.coord.IsOnline()
}

func (c *Client) AddListener(fn func(online bool)) func() {
	return c.coord.AddListener(fn)
}

// Coordinator exposes the offline coordinator, e.g. for offline.Read.
func (c *Client) Coordinator() *offline.Coordinator {
	return c.coord
}

// Close is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.coord.Close()
		c.closeErr = c.release()
	})
	return c.closeErr
}

func (c *Client) release() error {
	c.cancel()
	if c.scheduler != nil {
		c.scheduler.Wait()
	}
	// Sync fails on terminals; nothing to do about it.
	_ = c.logger.Sync()
	if c.ownsKV {
		return c.kv.Close()
	}
	return nil
}
