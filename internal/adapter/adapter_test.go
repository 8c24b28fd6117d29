package adapter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"onager/internal/engine"
	"onager/internal/ffi"
	"onager/internal/metrics"
)

func lookup(t *testing.T, name string) *engine.Algorithm {
	t.Helper()
	fn, err := engine.Lookup(name)
	require.NoError(t, err)
	return fn
}

// drain pulls until Finished and returns every chunk.
func drain(t *testing.T, a *Adapter) ([]Chunk, []Signal) {
	t.Helper()
	var chunks []Chunk
	var signals []Signal
	for range 1000 {
		c, sig, err := a.Pull()
		require.NoError(t, err)
		chunks = append(chunks, c)
		signals = append(signals, sig)
		if sig == Finished {
			return chunks, signals
		}
	}
	t.Fatal("adapter never finished")
	return nil, nil
}

// selfLoops feeds n self-loop edges in batches so degree yields n rows.
func selfLoops(t *testing.T, a *Adapter, n, batch int) {
	t.Helper()
	for lo := 0; lo < n; lo += batch {
		hi := min(lo+batch, n)
		var src []int64
		for i := lo; i < hi; i++ {
			src = append(src, int64(i))
		}
		sig, err := a.Append(src, src, nil)
		require.NoError(t, err)
		assert.Equal(t, NeedMoreInput, sig)
	}
	require.NoError(t, a.CloseInput())
}

func TestPaginationMatchesSingleChunk(t *testing.T) {
	b := ffi.New(nil)
	fn := lookup(t, "degree")

	paged := New(b, fn, fn.Defaults)
	selfLoops(t, paged, 5000, 1000)
	chunks, signals := drain(t, paged)

	var sizes []int
	var ids []int64
	for _, c := range chunks {
		sizes = append(sizes, c.Rows())
		ids = append(ids, c.Columns[0].Ints...)
	}
	assert.Equal(t, []int{2048, 2048, 904}, sizes)
	assert.Equal(t, []Signal{HaveMoreOutput, HaveMoreOutput, Finished}, signals)
	assert.Equal(t, Done, paged.State())

	whole := New(b, fn, fn.Defaults, WithChunkSize(10000))
	selfLoops(t, whole, 5000, 5000)
	one, _ := drain(t, whole)
	require.Len(t, one, 1)
	if diff := cmp.Diff(one[0].Columns[0].Ints, ids); diff != "" {
		t.Errorf("paged ids differ (-whole +paged):\n%s", diff)
	}

	// Pulling after Done keeps returning an empty final chunk.
	c, sig, err := paged.Pull()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Rows())
	assert.Equal(t, Finished, sig)
}

func TestEmptyInputShortCircuits(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fn := lookup(t, "pagerank")

	a := New(ffi.New(nil), fn, fn.Defaults, WithLogger(zap.New(core)), WithMetrics(m))
	require.NoError(t, a.CloseInput())
	c, sig, err := a.Pull()

	require.NoError(t, err)
	assert.Equal(t, 0, c.Rows())
	assert.Equal(t, Finished, sig)
	assert.Equal(t, Done, a.State())
	assert.Equal(t, 1, logs.FilterMessage("empty input, skipping computation").Len())
	assert.Equal(t, 0, logs.FilterMessage("computation finished").Len())

	// One empty invocation and no boundary call at all.
	n, err := testutil.GatherAndCount(reg, "onager_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "onager_boundary_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEmptyDiameterIsAnError(t *testing.T) {
	fn := lookup(t, "diameter")
	a := New(ffi.New(nil), fn, fn.Defaults)
	require.NoError(t, a.CloseInput())

	_, sig, err := a.Pull()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty graph")
	assert.Equal(t, Finished, sig)
	assert.Equal(t, Done, a.State())
}

func TestComputationErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fn := lookup(t, "bfs")
	p := fn.Defaults
	p.Source = 77

	a := New(ffi.New(nil), fn, p, WithLogger(zap.New(core)))
	_, err := a.Append([]int64{1}, []int64{2}, nil)
	require.NoError(t, err)
	require.NoError(t, a.CloseInput())
	_, _, err = a.Pull()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found: 77")

	entries := logs.FilterMessage("computation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID(), entries[0].ContextMap()["query_id"])
}

func TestGeneratorSkipsCollecting(t *testing.T) {
	fn := lookup(t, "erdos_renyi")
	p, err := BindParams(fn, []any{int64(20), 0.5}, nil)
	require.NoError(t, err)

	a := New(ffi.New(nil), fn, p)
	assert.Equal(t, Computing, a.State())
	_, err = a.Append([]int64{1}, []int64{2}, nil)
	assert.ErrorIs(t, err, ErrWrongState)

	chunks, _ := drain(t, a)
	assert.Positive(t, chunks[0].Rows())
}

func TestInvokersProduceSameRows(t *testing.T) {
	fn := lookup(t, "louvain")
	src := []int64{1, 2, 1, 4, 5, 4, 3}
	dst := []int64{2, 3, 3, 5, 6, 6, 4}

	collect := func(inv ffi.Invoker) []Chunk {
		a := New(ffi.New(nil), fn, fn.Defaults, WithInvoker(inv), WithChunkSize(4))
		_, err := a.Append(src, dst, nil)
		require.NoError(t, err)
		require.NoError(t, a.CloseInput())
		chunks, _ := drain(t, a)
		return chunks
	}
	if diff := cmp.Diff(collect(ffi.TwoPhase{}), collect(ffi.ComputeOnce{})); diff != "" {
		t.Errorf("invokers differ (-two_phase +compute_once):\n%s", diff)
	}
}

func TestConcurrentUseIsRejected(t *testing.T) {
	fn := lookup(t, "pagerank")
	a := New(ffi.New(nil), fn, fn.Defaults)

	a.busy.Store(true)
	_, err := a.Append([]int64{1}, []int64{2}, nil)
	assert.ErrorIs(t, err, ErrConcurrentUse)
	_, _, err = a.Pull()
	assert.ErrorIs(t, err, ErrConcurrentUse)
	assert.ErrorIs(t, a.CloseInput(), ErrConcurrentUse)

	a.busy.Store(false)
	_, err = a.Append([]int64{1}, []int64{2}, nil)
	assert.NoError(t, err)
}

func TestPullBeforeCloseAsksForInput(t *testing.T) {
	fn := lookup(t, "pagerank")
	a := New(ffi.New(nil), fn, fn.Defaults)

	_, sig, err := a.Pull()
	require.NoError(t, err)
	assert.Equal(t, NeedMoreInput, sig)
	assert.Equal(t, Collecting, a.State())
}

func TestUnweightedFunctionsDropWeights(t *testing.T) {
	fn := lookup(t, "components")
	a := New(ffi.New(nil), fn, fn.Defaults)
	_, err := a.Append([]int64{1}, []int64{2}, []float64{9})
	require.NoError(t, err)
	assert.Nil(t, a.edges.Weights)
}
