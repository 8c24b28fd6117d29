package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// kruskal returns a minimum spanning forest of the undirected graph. Edges
// of equal weight keep their input order, and endpoints are reported as given.
func kruskal(e *EdgeList, _ Params) (*Result, error) {
	for i, w := range e.Weights {
		if math.IsNaN(w) {
			return nil, fmt.Errorf("%w: edge %d->%d has NaN weight", ErrInvalidParameter, e.Src[i], e.Dst[i])
		}
	}
	g := newGraph(e, false)
	order := make([]int, e.Len())
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(e.Weight(a), e.Weight(b)) })

	uf := newUnionFind(g.n())
	src := []int64{}
	dst := []int64{}
	weight := []float64{}
	for _, i := range order {
		if !uf.union(g.index[e.Src[i]], g.index[e.Dst[i]]) {
			continue
		}
		src = append(src, e.Src[i])
		dst = append(dst, e.Dst[i])
		weight = append(weight, e.Weight(i))
	}
	return &Result{Columns: []Column{IntColumn(src), IntColumn(dst), FloatColumn(weight)}}, nil
}
