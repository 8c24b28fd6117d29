package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Invocation("onager_ctr_pagerank", OutcomeOK)
	m.Invocation("onager_ctr_pagerank", OutcomeOK)
	m.Invocation("onager_ctr_pagerank", OutcomeError)
	m.Emitted("onager_ctr_pagerank", 5000)
	m.BoundaryCall("negotiate")
	m.SetGraphs(3)
	m.Compute("onager_ctr_pagerank", 2*time.Millisecond, 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invocations.WithLabelValues("onager_ctr_pagerank", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("onager_ctr_pagerank", OutcomeError)))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.emittedRows.WithLabelValues("onager_ctr_pagerank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.boundaryCalls.WithLabelValues("negotiate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.graphs))
	assert.Equal(t, 1, testutil.CollectAndCount(m.computeSeconds))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Invocation("f", OutcomeOK)
		m.Compute("f", time.Second, 1)
		m.Emitted("f", 1)
		m.BoundaryCall("fill")
		m.SetGraphs(1)
	})
}
