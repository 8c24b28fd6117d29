// Package metrics holds the prometheus collectors of the extension. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onager"

type Metrics struct {
	invocations    *prometheus.CounterVec
	computeSeconds *prometheus.HistogramVec
	inputEdges     *prometheus.HistogramVec
	emittedRows    *prometheus.CounterVec
	boundaryCalls  *prometheus.CounterVec
	graphs         prometheus.Gauge
}

// New registers the collectors on reg. Passing prometheus.NewRegistry() keeps
// tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Table function invocations by function and outcome",
		}, []string{"function", "outcome"}),
		computeSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Engine compute duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"function"}),
		inputEdges: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_edges",
			Help:      "Edges collected per invocation",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}, []string{"function"}),
		emittedRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emitted_rows_total",
			Help:      "Result rows handed to the host",
		}, []string{"function"}),
		boundaryCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_calls_total",
			Help:      "Engine boundary calls by phase",
		}, []string{"phase"}),
		graphs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_graphs",
			Help:      "Named graphs currently registered",
		}),
	}
}

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

func (m *Metrics) Invocation(function, outcome string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(function, outcome).Inc()
}

func (m *Metrics) Compute(function string, d time.Duration, edges int) {
	if m == nil {
		return
	}
	m.computeSeconds.WithLabelValues(function).Observe(d.Seconds())
	m.inputEdges.WithLabelValues(function).Observe(float64(edges))
}

func (m *Metrics) Emitted(function string, rows int) {
	if m == nil {
		return
	}
	m.emittedRows.WithLabelValues(function).Add(float64(rows))
}

// BoundaryCall counts one call; phase is negotiate, fill, run, scalar or
// registry.
func (m *Metrics) BoundaryCall(phase string) {
	if m == nil {
		return
	}
	m.boundaryCalls.WithLabelValues(phase).Inc()
}

func (m *Metrics) SetGraphs(n int) {
	if m == nil {
		return
	}
	m.graphs.Set(float64(n))
}
