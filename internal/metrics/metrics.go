// Package metrics exposes clock events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tock/internal/tock"
)

// Metrics observes clock events and records them in a registry.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	ticksTotal       *prometheus.CounterVec
	completionsTotal prometheus.Counter
	transitionsTotal *prometheus.CounterVec

	// Gauges
	drift   prometheus.Gauge
	running prometheus.Gauge

	// Histograms
	driftAbs  prometheus.Histogram
	nextDelay prometheus.Histogram
}

var _ tock.Observer = (*Metrics)(nil)

// New creates and registers the clock metrics in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tock_ticks_total",
				Help: "Total number of ticks fired",
			},
			[]string{"mode"},
		),
		completionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tock_completions_total",
				Help: "Total number of countdowns that reached zero",
			},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tock_transitions_total",
				Help: "Lifecycle transitions by event kind",
			},
			[]string{"kind"},
		),

		drift: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tock_drift_seconds",
				Help: "Measured minus nominal elapsed time at the last tick",
			},
		),
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tock_running",
				Help: "1 while the clock is running",
			},
		),

		driftAbs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tock_drift_abs_seconds",
				Help:    "Absolute drift observed per tick",
				Buckets: []float64{.0005, .001, .002, .005, .01, .025, .05, .1, .25},
			},
		),
		nextDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tock_next_delay_seconds",
				Help:    "Drift-corrected delay requested for the next tick",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
		),
	}

	m.registry.MustRegister(
		m.ticksTotal,
		m.completionsTotal,
		m.transitionsTotal,
		m.drift,
		m.running,
		m.driftAbs,
		m.nextDelay,
	)
	return m
}

// Observe implements tock.Observer.
func (m *Metrics) Observe(ev tock.Event) {
	switch ev.Kind {
	case tock.EventTick:
		m.ticksTotal.WithLabelValues(ev.Mode.String()).Inc()
		m.drift.Set(ev.Drift.Seconds())
		d := ev.Drift.Seconds()
		if d < 0 {
			d = -d
		}
		m.driftAbs.Observe(d)
		if ev.Rearmed {
			m.nextDelay.Observe(ev.Delay.Seconds())
		}
		return
	case tock.EventStart:
		m.running.Set(1)
	case tock.EventComplete:
		m.completionsTotal.Inc()
		m.running.Set(0)
	case tock.EventStop, tock.EventReset:
		m.running.Set(0)
	}
	m.transitionsTotal.WithLabelValues(ev.Kind.String()).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
