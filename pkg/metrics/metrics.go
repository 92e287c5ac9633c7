// Package metrics exposes Prometheus collectors for workflow execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskflow"

// Metrics groups the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal *prometheus.CounterVec
	throttledTotal   prometheus.Counter
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	nodesTotal       *prometheus.CounterVec
	nodeDuration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		evaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "project_evaluations_total",
				Help:      "Total number of project evaluations",
			},
			[]string{"outcome"},
		),
		throttledTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "project_evaluations_throttled_total",
				Help:      "Total number of project evaluations suppressed by the throttle",
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_runs_total",
				Help:      "Total number of workflow runs",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_duration_seconds",
				Help:      "Workflow run duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		nodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_dispatches_total",
				Help:      "Total number of node dispatches",
			},
			[]string{"subtype", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_dispatch_duration_seconds",
				Help:      "Node dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"subtype"},
		),
	}
}

func (m *Metrics) RecordEvaluation(outcome string) {
	if m == nil {
		return
	}

	m.evaluationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordThrottled() {
	if m == nil {
		return
	}

	m.throttledTotal.Inc()
}

func (m *Metrics) RecordRun(status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordNode(subtype string, success bool, duration time.Duration) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	m.nodesTotal.WithLabelValues(subtype, status).Inc()
	m.nodeDuration.WithLabelValues(subtype).Observe(duration.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
