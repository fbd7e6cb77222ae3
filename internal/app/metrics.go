package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the daemon's Prometheus metrics on a private registry.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	SweepsTotal       *prometheus.CounterVec
	TabsClosedTotal   prometheus.Counter
	CloseFailures     prometheus.Counter
	SyncsTotal        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TrackedTabs       prometheus.Gauge
	TrackedURLs       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idletab_events_total",
				Help: "Tab lifecycle events handled, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idletab_sweeps_total",
				Help: "Inactive-tab sweeps, by trigger and result.",
			},
			[]string{"trigger", "result"},
		),
		TabsClosedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idletab_tabs_closed_total",
				Help: "Tabs closed for inactivity.",
			},
		),
		CloseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idletab_tab_close_failures_total",
				Help: "Inactive tabs the browser refused to close.",
			},
		),
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idletab_syncs_total",
				Help: "Reconciliation runs, by trigger and whether the ledger changed.",
			},
			[]string{"trigger", "changed"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idletab_operation_duration_seconds",
				Help:    "Duration of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		TrackedTabs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "idletab_tracked_tabs",
				Help: "Tab entries in the activity ledger.",
			},
		),
		TrackedURLs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "idletab_tracked_urls",
				Help: "URL entries in the activity ledger.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.SweepsTotal)
	reg.MustRegister(m.TabsClosedTotal)
	reg.MustRegister(m.CloseFailures)
	reg.MustRegister(m.SyncsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.TrackedTabs)
	reg.MustRegister(m.TrackedURLs)

	return m
}

// Gatherer exposes the registry for the /metrics endpoint.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// RecordEvent counts one handled lifecycle event.
func (m *Metrics) RecordEvent(kind string, err error) {
	m.EventsTotal.WithLabelValues(kind, result(err)).Inc()
}

// RecordSweep counts one sweep and the tabs it closed.
func (m *Metrics) RecordSweep(trigger string, closed, failed int, err error) {
	m.SweepsTotal.WithLabelValues(trigger, result(err)).Inc()
	m.TabsClosedTotal.Add(float64(closed))
	m.CloseFailures.Add(float64(failed))
}

// RecordSync counts one reconciliation run.
func (m *Metrics) RecordSync(trigger string, changed bool) {
	c := "false"
	if changed {
		c = "true"
	}
	m.SyncsTotal.WithLabelValues(trigger, c).Inc()
}

// ObserveDuration records how long op took since start.
func (m *Metrics) ObserveDuration(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetTracked updates the ledger size gauges.
func (m *Metrics) SetTracked(tabs, urls int) {
	m.TrackedTabs.Set(float64(tabs))
	m.TrackedURLs.Set(float64(urls))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
