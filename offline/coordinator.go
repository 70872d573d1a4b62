// Package offline routes reads and writes according to connectivity and
// replays writes that were queued while the device was offline.
package offline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/cache"
	"github.com/krisalay/resilient-client/connectivity"
	"github.com/krisalay/resilient-client/dedup"
	"github.com/krisalay/resilient-client/platform"
	"github.com/krisalay/resilient-client/queue"
	"github.com/krisalay/resilient-client/refresh"
	"github.com/krisalay/resilient-client/types"
	"github.com/krisalay/resilient-client/writepolicy"
)

// Config wires a Coordinator. Queue, Caches, Executor and Source are required.
type Config struct {
	Queue    *queue.Queue
	Caches   *cache.Group
	Executor types.Executor
	Source   connectivity.Source

	Dedup   *dedup.Deduplicator
	Refresh refresh.Hook

	Notifier  platform.Notifier
	Scheduler platform.Scheduler

	// RetryInterval schedules a background replay attempt while online with
	// a non-empty queue. Zero disables it.
	RetryInterval time.Duration

	Metrics types.Metrics
	Logger  *zap.Logger
}

/*
Coordinator is the offline-aware front door for remote calls.

States are ONLINE and OFFLINE. Going OFFLINE only changes where new writes go.
Going ONLINE schedules exactly one replay pass of the durable queue.

A Coordinator is constructed explicitly and shared by reference; there is no
package-level instance.
*/
type Coordinator struct {
	queue    *queue.Queue
	caches   *cache.Group
	executor types.Executor
	source   connectivity.Source
	dedup    *dedup.Deduplicator
	refresh  refresh.Hook

	direct   writepolicy.WritePolicy
	deferred writepolicy.WritePolicy

	notifier      platform.Notifier
	scheduler     platform.Scheduler
	retryInterval time.Duration

	metrics types.Metrics
	logger  *zap.Logger

	mu        sync.Mutex
	online    bool
	signals   uint64
	listeners map[uint64]func(online bool)
	nextID    uint64
	started   bool

	// transitionMu orders state changes and their listener fan-out.
	transitionMu sync.Mutex

	// replay bookkeeping
	replayMu  sync.Mutex
	pending   int
	scheduled uint64
	passes    uint64
	last      types.ReplayResult
	wake      chan struct{}

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	stopRetry   func()
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Queue == nil:
		return nil, errors.New("offline: queue is required")
	case cfg.Caches == nil:
		return nil, errors.New("offline: cache group is required")
	case cfg.Executor == nil:
		return nil, errors.New("offline: executor is required")
	case cfg.Source == nil:
		return nil, errors.New("offline: connectivity source is required")
	}

	if cfg.Metrics == nil {
		cfg.Metrics = types.NoopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Dedup == nil {
		cfg.Dedup = dedup.New(cfg.Metrics, cfg.Logger.Named("dedup"))
	}
	if cfg.Notifier == nil {
		cfg.Notifier = platform.Noop{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = platform.Noop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		queue:         cfg.Queue,
		caches:        cfg.Caches,
		executor:      cfg.Executor,
		source:        cfg.Source,
		dedup:         cfg.Dedup,
		refresh:       cfg.Refresh,
		direct:        writepolicy.NewWriteThroughPolicy(cfg.Executor, cfg.Metrics),
		deferred:      writepolicy.NewQueuePolicy(cfg.Queue, cfg.Metrics),
		notifier:      cfg.Notifier,
		scheduler:     cfg.Scheduler,
		retryInterval: cfg.RetryInterval,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		online:        true,
		listeners:     make(map[uint64]func(bool)),
		wake:          make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

/*
Start subscribes to the connectivity source, reads its current state and
starts the replay worker.

If the source cannot report a state, the last known state is kept (ONLINE for
a fresh coordinator). A process that starts online with writes left over from
a previous run treats startup as the reconnect edge and replays them.
*/
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("offline: coordinator already started")
	}
	c.started = true
	c.mu.Unlock()

	// Subscribe before polling so a change during Current is not lost.
	c.unsubscribe = c.source.Subscribe(c.onStatus)

	c.mu.Lock()
	seen := c.signals
	c.mu.Unlock()
	if online, err := c.source.Current(ctx); err != nil {
		c.logger.Warn("connectivity unknown at start, keeping last known state",
			zap.Bool("online", c.IsOnline()), zap.Error(err))
	} else {
		c.transition(online, false, seen)
	}

	c.wg.Add(1)
	go c.worker()

	if c.retryInterval > 0 {
		stop, err := c.scheduler.Schedule("offline-replay", c.retryInterval, c.retryTask)
		switch {
		case errors.Is(err, platform.ErrUnavailable):
			c.logger.Debug("background replay unavailable on this platform")
		case err != nil:
			c.logger.Warn("could not schedule background replay", zap.Error(err))
		default:
			c.stopRetry = stop
		}
	}

	pending := c.queue.Len()
	c.metrics.QueueDepth(pending)
	c.logger.Info("offline coordinator started",
		zap.Bool("online", c.IsOnline()), zap.Int("pending", pending))
	c.mu.Lock()
	startEdge := c.online && pending > 0 && c.scheduled == 0
	c.mu.Unlock()
	if startEdge {
		c.scheduleReplay()
	}
	return nil
}

// Close stops the worker and background task and drops the source
// subscription. Listeners are left registered; they are never called again.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		if c.stopRetry != nil {
			c.stopRetry()
		}
		c.cancel()
		c.wg.Wait()
	})
}

func (c *Coordinator) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// AddListener registers fn for every connectivity transition. Call the
// returned function to unregister; nothing is removed implicitly.
func (c *Coordinator) AddListener(fn func(online bool)) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Pending returns the queued writes in replay order.
func (c *Coordinator) Pending() []types.QueuedAction {
	return c.queue.Snapshot()
}

// Caches is the cache group reads are served from.
func (c *Coordinator) Caches() *cache.Group {
	return c.caches
}

func (c *Coordinator) onStatus(st connectivity.Status) {
	if st.Err != nil {
		c.logger.Warn("connectivity signal failed, keeping last known state",
			zap.Bool("online", c.IsOnline()), zap.Error(st.Err))
		return
	}
	c.transition(st.Online, true, 0)
}

/*
transition moves the coordinator to online and tells listeners, in
registration order. Transitions are serialised, so listeners see changes in
the order they were applied. A listener must not change connectivity from
inside its callback.

A signal always applies. A polled state (signal false) is dropped when a
signal was delivered after seen, since the signal is newer.
*/
func (c *Coordinator) transition(online, signal bool, seen uint64) {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	c.mu.Lock()
	if signal {
		c.signals++
	} else if c.signals != seen {
		c.mu.Unlock()
		return
	}
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online

	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	c.logger.Info("connectivity changed", zap.Bool("online", online))
	for _, fn := range fns {
		c.notifyListener(fn, online)
	}

	if online {
		c.scheduleReplay()
	}
}

// notifyListener keeps one broken listener from stopping the transition.
func (c *Coordinator) notifyListener(fn func(bool), online bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connectivity listener panicked", zap.Any("panic", r))
		}
	}()
	fn(online)
}

func (c *Coordinator) notify(title, body string) {
	if err := c.notifier.Notify(c.ctx, title, body); err != nil {
		c.logger.Debug("notification not shown", zap.String("title", title), zap.Error(err))
	}
}

func (c *Coordinator) retryTask(ctx context.Context) error {
	if !c.IsOnline() || c.queue.Len() == 0 {
		return nil
	}
	res := c.ReplayQueue(ctx)
	if res.Err != nil {
		return fmt.Errorf("background replay: %w", res.Err)
	}
	return nil
}
