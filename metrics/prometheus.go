// Package metrics exports cache, dedup and offline queue counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/resilient-client/types"
)

const namespace = "resilient"

// Prometheus implements types.Metrics.
//
// All metrics use the resilient_ prefix. Methods handle a nil receiver so a
// disabled exporter costs nothing.
type Prometheus struct {
	// CacheLookups counts cache reads by result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// CacheRemovals counts entries dropped by reason (evicted, expired)
	CacheRemovals *prometheus.CounterVec

	// Refreshes counts refresh-ahead reloads started
	Refreshes prometheus.Counter

	// SharedCalls counts callers that joined an in-flight request
	SharedCalls prometheus.Counter

	// Writes counts writes by outcome (queued, delivered, replay_failed)
	Writes *prometheus.CounterVec

	// QueueDepthGauge is the number of writes waiting for replay
	QueueDepthGauge prometheus.Gauge
}

var _ types.Metrics = (*Prometheus)(nil)

// New creates the metrics and registers them with reg.
//
// Pass a nil reg to create unregistered metrics (tests, or when metrics are
// disabled but a value is still needed). Registering twice with the same
// registry reuses the existing collectors.
func New(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		CacheRemovals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_removals_total",
				Help:      "Response cache entries removed by reason",
			},
			[]string{"reason"},
		),
		Refreshes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_refreshes_total",
				Help:      "Background refresh-ahead reloads started",
			},
		),
		SharedCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dedup_shared_total",
				Help:      "Requests served by joining an in-flight call",
			},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "writes_total",
				Help:      "Writes by outcome (queued, delivered, replay_failed)",
			},
			[]string{"outcome"},
		),
		QueueDepthGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "offline_queue_depth",
				Help:      "Writes waiting in the offline queue",
			},
		),
	}

	if reg != nil {
		m.CacheLookups = registerOrReuse(reg, m.CacheLookups).(*prometheus.CounterVec)
		m.CacheRemovals = registerOrReuse(reg, m.CacheRemovals).(*prometheus.CounterVec)
		m.Refreshes = registerOrReuse(reg, m.Refreshes).(prometheus.Counter)
		m.SharedCalls = registerOrReuse(reg, m.SharedCalls).(prometheus.Counter)
		m.Writes = registerOrReuse(reg, m.Writes).(*prometheus.CounterVec)
		m.QueueDepthGauge = registerOrReuse(reg, m.QueueDepthGauge).(prometheus.Gauge)
	}
	return m
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Prometheus) Hit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Prometheus) Miss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Prometheus) Eviction() {
	if m == nil {
		return
	}
	m.CacheRemovals.WithLabelValues("evicted").Inc()
}

func (m *Prometheus) Expire() {
	if m == nil {
		return
	}
	m.CacheRemovals.WithLabelValues("expired").Inc()
}

func (m *Prometheus) Refresh() {
	if m == nil {
		return
	}
	m.Refreshes.Inc()
}

func (m *Prometheus) Shared() {
	if m == nil {
		return
	}
	m.SharedCalls.Inc()
}

func (m *Prometheus) Queued() {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues("queued").Inc()
}

func (m *Prometheus) Delivered() {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues("delivered").Inc()
}

func (m *Prometheus) ReplayFailed() {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues("replay_failed").Inc()
}

func (m *Prometheus) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepthGauge.Set(float64(n))
}
