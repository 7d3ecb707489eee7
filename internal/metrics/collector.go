// Package metrics turns session audit events into Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

const namespace = "terminalnator"

// Collector implements ports.AuditLog by updating counters from events.
type Collector struct {
	registry *prometheus.Registry

	opened   prometheus.Counter
	closed   *prometheus.CounterVec
	active   prometheus.Gauge
	commands prometheus.Counter
	pushes   *prometheus.CounterVec
	errors   *prometheus.CounterVec

	mu    sync.Mutex
	ready map[string]struct{}
}

// NewCollector creates a collector on its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions that reached the ready state.",
		}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Closed sessions by reason.",
		}, []string{"reason"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently open.",
		}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent to devices.",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_pushes_total",
			Help:      "Config pushes by result.",
		}, []string{"result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Session errors by kind.",
		}, []string{"kind"}),
		ready: make(map[string]struct{}),
	}
	c.registry.MustRegister(c.opened, c.closed, c.active, c.commands, c.pushes, c.errors)
	return c
}

// RegisterDropped exposes a counter of discarded audit events.
func (c *Collector) RegisterDropped(dropped func() uint64) {
	c.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Audit events discarded because the writer fell behind.",
	}, func() float64 { return float64(dropped()) }))
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Record updates metrics from one audit event.
func (c *Collector) Record(e ports.Event) {
	switch e.Kind {
	case ports.EventState:
		c.recordState(e)
	case ports.EventCommand:
		c.commands.Inc()
	case ports.EventPush:
		c.pushes.WithLabelValues(e.Reason).Inc()
	case ports.EventError:
		c.errors.WithLabelValues(e.Reason).Inc()
	}
}

func (c *Collector) recordState(e ports.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Detail {
	case "ready":
		if _, ok := c.ready[e.SessionID]; ok {
			return
		}
		c.ready[e.SessionID] = struct{}{}
		c.opened.Inc()
		c.active.Inc()
	case "closed":
		c.closed.WithLabelValues(e.Reason).Inc()
		if _, ok := c.ready[e.SessionID]; ok {
			delete(c.ready, e.SessionID)
			c.active.Dec()
		}
	}
}
