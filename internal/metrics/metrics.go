// Package metrics exposes the core's runtime counters through
// github.com/prometheus/client_golang, grounded on the teacher's own
// internal/core/metrics and internal/core/bandwidth packages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds one Core's instrumentation. Each Core constructs its
// own Metrics against a private registry rather than the global
// default one, so that multiple in-process cores (as the test suite
// constructs) never collide on metric names.
type Metrics struct {
	Registry *prometheus.Registry

	Published   *prometheus.CounterVec
	Delivered   *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
	Pending     prometheus.Gauge
	LoopLatency prometheus.Histogram
}

// New constructs a Metrics instance registered against a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_published_total",
			Help: "Publish calls, by topic.",
		}, []string{"topic"}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_delivered_total",
			Help: "Handler deliveries, by topic and locality.",
		}, []string{"topic", "locality"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_dropped_total",
			Help: "Dropped deliveries, by reason.",
		}, []string{"reason"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transport_pending_requests",
			Help: "Service requests awaiting a response.",
		}),
		LoopLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transport_reception_loop_seconds",
			Help:    "Time spent dispatching one reception-loop event.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.Published, m.Delivered, m.Dropped, m.Pending, m.LoopLatency)
	return m
}
