// Package metrics exposes seating engine instrumentation to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records engine operation counts and latencies.  It
// satisfies seating.Metrics.
type Prometheus struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	cache   *prometheus.CounterVec
	events  *prometheus.CounterVec
}

// NewPrometheus registers the seating collectors on reg.  A nil reg uses
// prometheus.DefaultRegisterer; an empty namespace defaults to "seating".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "seating"
	}
	p := &Prometheus{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Seating operations by name and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in a seating operation including its transaction.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result (hit/miss).",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Seating events handed to the broker by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(p.ops, p.latency, p.cache, p.events)
	return p
}

// ObserveOperation implements seating.Metrics.
func (p *Prometheus) ObserveOperation(op, outcome string, elapsed time.Duration) {
	p.ops.WithLabelValues(op, outcome).Inc()
	p.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// CacheLookup counts a response cache hit or miss.
func (p *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// EventPublished counts an event publish attempt.
func (p *Prometheus) EventPublished(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.events.WithLabelValues(result).Inc()
}
