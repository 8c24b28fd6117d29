package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxClique(t *testing.T) {
	k4 := edges(1, 2, 1, 3, 1, 4, 2, 3, 2, 4, 3, 4, 4, 5, 5, 6)
	res := run(t, "onager_apx_max_clique", k4, nil)
	assert.Equal(t, []int64{1, 2, 3, 4}, res.Columns[0].Ints)
}

func TestIndependentSet(t *testing.T) {
	res := run(t, "onager_apx_independent_set", edges(1, 2, 2, 3, 3, 4, 4, 5), nil)
	assert.Equal(t, []int64{1, 3, 5}, res.Columns[0].Ints)
}

func TestVertexCover(t *testing.T) {
	star := run(t, "onager_apx_vertex_cover", edges(1, 2, 1, 3, 1, 4), nil)
	assert.Equal(t, []int64{1, 2}, star.Columns[0].Ints)

	e := edges(1, 2, 2, 3, 3, 1, 3, 4, 4, 5, 5, 6, 6, 4, 2, 7)
	res := run(t, "onager_apx_vertex_cover", e, nil)
	cover := map[int64]bool{}
	for _, id := range res.Columns[0].Ints {
		cover[id] = true
	}
	for i := range e.Src {
		assert.True(t, cover[e.Src[i]] || cover[e.Dst[i]], "edge %d-%d not covered", e.Src[i], e.Dst[i])
	}
}

func TestApproximationsOnEmptyInput(t *testing.T) {
	for _, name := range []string{"max_clique", "independent_set", "vertex_cover"} {
		res := run(t, name, &EdgeList{}, nil)
		assert.Equal(t, 0, res.Rows(), name)
		assert.NotNil(t, res.Columns[0].Ints, name)
	}
}

func TestTSP(t *testing.T) {
	cycle := edges(1, 2, 2, 3, 3, 4, 4, 1)
	cycle.Weights = []float64{1, 1, 1, 1}

	res := run(t, "onager_apx_tsp", cycle, nil)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, res.Columns[0].Ints)
	assert.Equal(t, []int64{1, 2, 3, 4, 1}, res.Columns[1].Ints)

	assert.ErrorIs(t, runErr(t, "tsp", &EdgeList{}, nil), ErrEmptyGraph)
	assert.ErrorIs(t, runErr(t, "tsp", edges(1, 2, 3, 4), nil), ErrDisconnected)

	a := mustLookup(t, "tsp")
	assert.True(t, a.EmptyIsError)
	require.True(t, a.Weighted)
}
