package ffi

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onager/internal/engine"
	"onager/internal/errchan"
	"onager/internal/metrics"
	"onager/internal/registry"
)

func cycle() *engine.EdgeList {
	return &engine.EdgeList{Src: []int64{1, 2, 3, 4}, Dst: []int64{2, 3, 4, 1}}
}

func defaults(t *testing.T, name string) engine.Params {
	t.Helper()
	a, err := engine.Lookup(name)
	require.NoError(t, err)
	return a.Defaults
}

func TestNegotiateThenFillAgree(t *testing.T) {
	b := New(nil)
	p := defaults(t, "pagerank")

	n := b.Compute("pagerank", cycle(), p, nil)
	require.Equal(t, int64(4), n)

	out := []engine.Column{engine.NewColumn(engine.Int64, 4), engine.NewColumn(engine.Float64, 4)}
	require.Equal(t, n, b.Compute("pagerank", cycle(), p, out))
	assert.Equal(t, []int64{1, 2, 3, 4}, out[0].Ints)

	again := []engine.Column{engine.NewColumn(engine.Int64, 4), engine.NewColumn(engine.Float64, 4)}
	b.Compute("pagerank", cycle(), p, again)
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("fill is not reproducible (-first +second):\n%s", diff)
	}
}

func TestFillRejectsWrongBuffers(t *testing.T) {
	tests := []struct {
		name string
		out  []engine.Column
	}{
		{name: "short", out: []engine.Column{engine.NewColumn(engine.Int64, 3), engine.NewColumn(engine.Float64, 3)}},
		{name: "long", out: []engine.Column{engine.NewColumn(engine.Int64, 5), engine.NewColumn(engine.Float64, 5)}},
		{name: "wrong type", out: []engine.Column{engine.NewColumn(engine.Float64, 4), engine.NewColumn(engine.Float64, 4)}},
		{name: "missing column", out: []engine.Column{engine.NewColumn(engine.Int64, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(nil)
			got := b.Compute("pagerank", cycle(), defaults(t, "pagerank"), tt.out)
			assert.Equal(t, errchan.Sentinel, got)

			msg, ok := b.LastError()
			require.True(t, ok)
			assert.Contains(t, msg, "contract violation")

			for _, col := range tt.out {
				for _, v := range col.Ints {
					assert.Zero(t, v, "buffer was written")
				}
				for _, v := range col.Floats {
					assert.Zero(t, v, "buffer was written")
				}
			}
		})
	}
}

func TestComputeFailureSetsMessage(t *testing.T) {
	b := New(nil)
	p := defaults(t, "bfs")
	p.Source = 99

	assert.Equal(t, errchan.Sentinel, b.Compute("bfs", cycle(), p, nil))
	msg, _ := b.LastError()
	assert.Contains(t, msg, "node not found: 99")

	assert.Equal(t, errchan.Sentinel, b.Compute("nope", cycle(), p, nil))
	msg, _ = b.LastError()
	assert.Contains(t, msg, "unknown algorithm")

	assert.Nil(t, b.Run("bfs", cycle(), p))
	assert.Error(t, b.Err("bfs"))
}

func TestComputeScalar(t *testing.T) {
	b := New(nil)
	path := &engine.EdgeList{Src: []int64{1, 2, 3}, Dst: []int64{2, 3, 4}}

	assert.Equal(t, 3.0, b.ComputeScalar("diameter", path, defaults(t, "diameter")))

	v := b.ComputeScalar("diameter", &engine.EdgeList{}, defaults(t, "diameter"))
	assert.True(t, math.IsNaN(v))
	msg, _ := b.LastError()
	assert.Contains(t, msg, "empty graph")

	assert.True(t, math.IsNaN(b.ComputeScalar("pagerank", path, defaults(t, "pagerank"))))
}

func TestSessionsHaveSeparateErrorSlots(t *testing.T) {
	root := New(nil)
	s1, s2 := root.Session(), root.Session()

	assert.Equal(t, errchan.StatusFailed, s1.DropGraph("missing"))
	_, ok := s2.LastError()
	assert.False(t, ok)

	// The registry is shared.
	require.Equal(t, errchan.StatusOK, s1.CreateGraph("g", true))
	assert.Equal(t, int64(0), s2.NodeCount("g"))
	assert.Same(t, root.Registry(), s2.Registry())
}

func TestRegistryCalls(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := New(registry.New(), WithMetrics(m))

	require.Equal(t, errchan.StatusOK, b.CreateGraph("g", true))
	assert.Equal(t, errchan.StatusFailed, b.CreateGraph("g", true))
	require.Equal(t, errchan.StatusOK, b.AddEdge("g", 1, 2, 1))
	require.Equal(t, errchan.StatusOK, b.AddEdge("g", 1, 3, 1))
	require.Equal(t, errchan.StatusOK, b.AddEdge("g", 2, 3, 1))
	require.Equal(t, errchan.StatusOK, b.AddNode("g", 9))

	assert.Equal(t, int64(4), b.NodeCount("g"))
	assert.Equal(t, int64(3), b.EdgeCount("g"))
	assert.Equal(t, int64(2), b.NodeOutDegree("g", 1))
	assert.Equal(t, int64(2), b.NodeInDegree("g", 3))
	assert.Equal(t, errchan.Sentinel, b.NodeInDegree("g", 42))
	assert.Equal(t, errchan.Sentinel, b.NodeCount("missing"))
	assert.Equal(t, errchan.StatusFailed, b.AddEdge("g", 1, 2, math.NaN()))

	e, directed := b.GraphEdges("g")
	require.NotNil(t, e)
	assert.True(t, directed)
	assert.Equal(t, []int64{1, 1, 2}, e.Src)
}

func TestRejectsInvalidNames(t *testing.T) {
	b := New(nil)
	bad := string([]byte{0xff, 0xfe})

	assert.Equal(t, errchan.StatusFailed, b.CreateGraph(bad, true))
	msg, _ := b.LastError()
	assert.Contains(t, msg, "UTF-8")

	assert.Equal(t, errchan.Sentinel, b.EdgeCount(bad))
	assert.Equal(t, errchan.StatusFailed, b.CreateGraph("", true))
	assert.Equal(t, 0, b.Registry().Len())
}

func TestListGraphsAndVersion(t *testing.T) {
	b := New(nil)
	require.Equal(t, errchan.StatusOK, b.CreateGraph("b", false))
	require.Equal(t, errchan.StatusOK, b.CreateGraph("a", true))

	s := b.ListGraphs()
	var infos []registry.Info
	require.NoError(t, json.Unmarshal([]byte(s.String()), &infos))
	assert.Equal(t, []string{"b", "a"}, []string{infos[0].Name, infos[1].Name})
	s.Release()

	v := b.Version()
	assert.Equal(t, Version, v.String())
	v.Release()
}

func TestOwnedStringRelease(t *testing.T) {
	b := New(nil)
	s := b.Version()
	require.False(t, s.Released())

	s.Release()
	assert.True(t, s.Released())
	assert.Equal(t, "", s.String())
	assert.NotPanics(t, s.Release)

	var nilStr *OwnedString
	assert.NotPanics(t, nilStr.Release)
	assert.Equal(t, "", nilStr.String())
}

func TestInvokersAgree(t *testing.T) {
	e := &engine.EdgeList{
		Src:     []int64{1, 2, 3, 3, 4, 5, 6, 2},
		Dst:     []int64{2, 3, 1, 4, 5, 6, 4, 7},
		Weights: []float64{1, 2, 1, 3, 1, 2, 1, 4},
	}
	b := New(nil)
	for _, a := range engine.Algorithms() {
		t.Run(a.SQLName(), func(t *testing.T) {
			p := a.Defaults
			p.Source = 1
			p.N, p.M, p.K, p.P, p.Beta = 25, 2, 4, 0.3, 0.2

			two, err := TwoPhase{}.Invoke(b.Session(), a.SQLName(), e, p)
			require.NoError(t, err)
			once, err := ComputeOnce{}.Invoke(b.Session(), a.SQLName(), e, p)
			require.NoError(t, err)
			if diff := cmp.Diff(once, two); diff != "" {
				t.Errorf("invokers differ (-compute_once +two_phase):\n%s", diff)
			}
		})
	}
}

func TestInvokersUseScalarEntryPoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := New(nil, WithMetrics(metrics.New(reg)))
	path := &engine.EdgeList{Src: []int64{1, 2, 3}, Dst: []int64{2, 3, 4}}

	for _, inv := range []Invoker{TwoPhase{}, ComputeOnce{}} {
		res, err := inv.Invoke(b.Session(), "onager_mtr_diameter", path, defaults(t, "diameter"))
		require.NoError(t, err)
		require.Equal(t, 1, res.Rows())
		assert.Equal(t, []int64{3}, res.Columns[0].Ints)

		res, err = inv.Invoke(b.Session(), "onager_mtr_density", path, defaults(t, "density"))
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.Columns[0].Floats[0], 1e-12)

		_, err = inv.Invoke(b.Session(), "onager_mtr_diameter", &engine.EdgeList{}, defaults(t, "diameter"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty graph")
	}

	want := `
# HELP onager_boundary_calls_total Engine boundary calls by phase
# TYPE onager_boundary_calls_total counter
onager_boundary_calls_total{phase="scalar"} 6
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "onager_boundary_calls_total"))
}

func TestInvokerFor(t *testing.T) {
	inv, err := InvokerFor("")
	require.NoError(t, err)
	assert.IsType(t, ComputeOnce{}, inv)

	inv, err = InvokerFor(ModeTwoPhase)
	require.NoError(t, err)
	assert.IsType(t, TwoPhase{}, inv)

	_, err = InvokerFor("three_phase")
	assert.Error(t, err)
}
