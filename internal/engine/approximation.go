package engine

import (
	"fmt"
	"math"
	"slices"
)

// nodeSet emits the ids of the marked nodes in ascending order.
func nodeSet(g *graph, in []bool) *Result {
	ids := []int64{}
	for u, ok := range in {
		if ok {
			ids = append(ids, g.ids[u])
		}
	}
	return &Result{Columns: []Column{IntColumn(ids)}}
}

// byDegree returns node indices ordered by degree, ties broken by index.
func byDegree(adj [][]int, descending bool) []int {
	order := make([]int, len(adj))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if descending {
			return len(adj[b]) - len(adj[a])
		}
		return len(adj[a]) - len(adj[b])
	})
	return order
}

// maxClique grows a clique greedily from every node, highest degree first,
// and keeps the largest one found.
func maxClique(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	order := byDegree(adj, true)
	rank := make([]int, g.n())
	for i, u := range order {
		rank[u] = i
	}

	var best []int
	for _, u := range order {
		if len(adj[u])+1 <= len(best) {
			continue
		}
		cand := slices.Clone(adj[u])
		slices.SortStableFunc(cand, func(a, b int) int { return rank[a] - rank[b] })
		clique := []int{u}
		for _, v := range cand {
			if allAdjacent(adj, clique, v) {
				clique = append(clique, v)
			}
		}
		if len(clique) > len(best) {
			best = clique
		}
	}

	in := make([]bool, g.n())
	for _, u := range best {
		in[u] = true
	}
	return nodeSet(g, in), nil
}

func allAdjacent(adj [][]int, members []int, v int) bool {
	for _, u := range members {
		if !adjacent(adj, u, v) {
			return false
		}
	}
	return true
}

// independentSet picks nodes lowest degree first, skipping any node next to
// one already picked. The result is maximal.
func independentSet(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	in := make([]bool, g.n())
	blocked := make([]bool, g.n())
	for _, u := range byDegree(adj, false) {
		if blocked[u] {
			continue
		}
		in[u] = true
		blocked[u] = true
		for _, v := range adj[u] {
			blocked[v] = true
		}
	}
	return nodeSet(g, in), nil
}

// vertexCover takes both endpoints of every edge not yet covered, in input
// order. The cover is at most twice the minimum.
func vertexCover(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	in := make([]bool, g.n())
	for i := range e.Src {
		u, v := g.index[e.Src[i]], g.index[e.Dst[i]]
		if in[u] || in[v] {
			continue
		}
		in[u] = true
		in[v] = true
	}
	return nodeSet(g, in), nil
}

// tsp builds a closed tour with the nearest-neighbor heuristic over
// shortest-path distances, starting at the smallest node id. The start node
// is repeated at the end.
func tsp(e *EdgeList, _ Params) (*Result, error) {
	if e.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, false)
	n := g.n()
	dist := make([][]float64, n)
	for u := range dist {
		dist[u] = shortestFrom(g, u)
		for v, d := range dist[u] {
			if math.IsInf(d, 1) {
				return nil, fmt.Errorf("%w: no route from %d to %d", ErrDisconnected, g.ids[u], g.ids[v])
			}
		}
	}

	tour := make([]int, 0, n+1)
	visited := make([]bool, n)
	cur := 0
	for {
		tour = append(tour, cur)
		visited[cur] = true
		next := -1
		for v := range n {
			if !visited[v] && (next < 0 || dist[cur][v] < dist[cur][next]) {
				next = v
			}
		}
		if next < 0 {
			break
		}
		cur = next
	}
	tour = append(tour, tour[0])

	order := make([]int64, len(tour))
	ids := make([]int64, len(tour))
	for i, u := range tour {
		order[i] = int64(i)
		ids[i] = g.ids[u]
	}
	return &Result{Columns: []Column{IntColumn(order), IntColumn(ids)}}, nil
}
