package engine

import "math"

// Link prediction scores every unordered pair of distinct, non-adjacent nodes
// of the undirected simple view. Pairs are emitted with node1 < node2 in
// ascending order.

type pairScore func(adj [][]int, u, v int) float64

func scorePairs(e *EdgeList, score pairScore, t ColumnType) *Result {
	g := newGraph(e, false)
	adj := g.simple()
	var n1, n2 []int64
	col := Column{Type: t}
	for u := 0; u < g.n(); u++ {
		for v := u + 1; v < g.n(); v++ {
			if adjacent(adj, u, v) {
				continue
			}
			n1 = append(n1, g.ids[u])
			n2 = append(n2, g.ids[v])
			s := score(adj, u, v)
			if t == Int64 {
				col.Ints = append(col.Ints, int64(s))
			} else {
				col.Floats = append(col.Floats, s)
			}
		}
	}
	if n1 == nil {
		n1, n2 = []int64{}, []int64{}
		col = NewColumn(t, 0)
	}
	return &Result{Columns: []Column{IntColumn(n1), IntColumn(n2), col}}
}

func jaccard(e *EdgeList, _ Params) (*Result, error) {
	return scorePairs(e, func(adj [][]int, u, v int) float64 {
		common := countCommon(adj[u], adj[v])
		union := len(adj[u]) + len(adj[v]) - common
		if union == 0 {
			return 0
		}
		return float64(common) / float64(union)
	}, Float64), nil
}

func adamicAdar(e *EdgeList, _ Params) (*Result, error) {
	return scorePairs(e, func(adj [][]int, u, v int) float64 {
		score := 0.0
		a, b := adj[u], adj[v]
		for i, j := 0, 0; i < len(a) && j < len(b); {
			switch {
			case a[i] < b[j]:
				i++
			case a[i] > b[j]:
				j++
			default:
				// A shared neighbor of two distinct nodes has degree >= 2.
				score += 1 / math.Log(float64(len(adj[a[i]])))
				i++
				j++
			}
		}
		return score
	}, Float64), nil
}

func commonNeighbors(e *EdgeList, _ Params) (*Result, error) {
	return scorePairs(e, func(adj [][]int, u, v int) float64 {
		return float64(countCommon(adj[u], adj[v]))
	}, Int64), nil
}

func prefAttachment(e *EdgeList, _ Params) (*Result, error) {
	return scorePairs(e, func(adj [][]int, u, v int) float64 {
		return float64(len(adj[u]) * len(adj[v]))
	}, Float64), nil
}

func resourceAllocation(e *EdgeList, _ Params) (*Result, error) {
	return scorePairs(e, func(adj [][]int, u, v int) float64 {
		score := 0.0
		a, b := adj[u], adj[v]
		for i, j := 0, 0; i < len(a) && j < len(b); {
			switch {
			case a[i] < b[j]:
				i++
			case a[i] > b[j]:
				j++
			default:
				score += 1 / float64(len(adj[a[i]]))
				i++
				j++
			}
		}
		return score
	}, Float64), nil
}
