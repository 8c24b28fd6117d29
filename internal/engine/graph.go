package engine

import (
	"slices"
)

type arc struct {
	to int
	w  float64
}

// graph is the dense form of an EdgeList. Node ids are sorted ascending and
// every algorithm works on their indices, so iteration order never depends on
// map layout.
type graph struct {
	ids      []int64
	index    map[int64]int
	out      [][]arc
	in       [][]arc
	directed bool
}

func newGraph(e *EdgeList, directed bool) *graph {
	ids := distinctNodes(e.Src, e.Dst)
	g := &graph{
		ids:      ids,
		index:    make(map[int64]int, len(ids)),
		out:      make([][]arc, len(ids)),
		directed: directed,
	}
	for i, id := range ids {
		g.index[id] = i
	}
	if directed {
		g.in = make([][]arc, len(ids))
	}
	for i := range e.Src {
		u, v := g.index[e.Src[i]], g.index[e.Dst[i]]
		w := e.Weight(i)
		g.out[u] = append(g.out[u], arc{to: v, w: w})
		switch {
		case directed:
			g.in[v] = append(g.in[v], arc{to: u, w: w})
		case u != v:
			g.out[v] = append(g.out[v], arc{to: u, w: w})
		}
	}
	return g
}

func distinctNodes(src, dst []int64) []int64 {
	ids := make([]int64, 0, len(src)+len(dst))
	ids = append(ids, src...)
	ids = append(ids, dst...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func (g *graph) n() int { return len(g.ids) }

func (g *graph) lookup(id int64) (int, error) {
	i, ok := g.index[id]
	if !ok {
		return 0, nodeNotFound(id)
	}
	return i, nil
}

// simple returns the undirected simple view: sorted distinct neighbors
// without self-loops, regardless of g.directed.
func (g *graph) simple() [][]int {
	adj := make([][]int, g.n())
	for u, arcs := range g.out {
		for _, a := range arcs {
			if a.to == u {
				continue
			}
			adj[u] = append(adj[u], a.to)
			if g.directed {
				adj[a.to] = append(adj[a.to], u)
			}
		}
	}
	for u := range adj {
		slices.Sort(adj[u])
		adj[u] = slices.Compact(adj[u])
	}
	return adj
}

// bfsDistances returns hop counts from s over adj, -1 for unreachable nodes.
func bfsDistances(adj [][]int, s int) []int {
	dist := make([]int, len(adj))
	for i := range dist {
		dist[i] = -1
	}
	dist[s] = 0
	queue := []int{s}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for _, w := range adj[v] {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}

func adjacent(adj [][]int, u, v int) bool {
	_, ok := slices.BinarySearch(adj[u], v)
	return ok
}

// countCommon counts the shared entries of two sorted slices.
func countCommon(a, b []int) int {
	n := 0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

// unionFind is a disjoint set with path halving and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}
