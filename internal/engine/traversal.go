package engine

import (
	"container/heap"
	"fmt"
	"math"
)

func orderColumns(g *graph, visited []int) *Result {
	ids := make([]int64, len(visited))
	order := make([]int64, len(visited))
	for i, u := range visited {
		ids[i] = g.ids[u]
		order[i] = int64(i)
	}
	return &Result{Columns: []Column{IntColumn(ids), IntColumn(order)}}
}

// bfs emits reachable nodes in visit order. Neighbors are visited in edge
// input order.
func bfs(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	visited := make([]bool, g.n())
	visited[s] = true
	queue := []int{s}
	for head := 0; head < len(queue); head++ {
		for _, a := range g.out[queue[head]] {
			if !visited[a.to] {
				visited[a.to] = true
				queue = append(queue, a.to)
			}
		}
	}
	return orderColumns(g, queue), nil
}

// dfs emits reachable nodes in preorder.
func dfs(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	visited := make([]bool, g.n())
	var order []int
	stack := []int{s}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[u] {
			continue
		}
		visited[u] = true
		order = append(order, u)
		arcs := g.out[u]
		for i := len(arcs) - 1; i >= 0; i-- {
			if !visited[arcs[i].to] {
				stack = append(stack, arcs[i].to)
			}
		}
	}
	return orderColumns(g, order), nil
}

type distItem struct {
	node int
	dist float64
}

type distHeap []distItem

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h distHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x any)   { *h = append(*h, x.(distItem)) }
func (h *distHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// dijkstra returns the weighted distance from source to every node, +Inf
// for unreachable ones.
func dijkstra(e *EdgeList, p Params) (*Result, error) {
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	return nodeColumns(g, shortestFrom(g, s)), nil
}

func shortestFrom(g *graph, s int) []float64 {
	dist := make([]float64, g.n())
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[s] = 0
	done := make([]bool, g.n())
	h := &distHeap{{node: s}}
	for h.Len() > 0 {
		it := heap.Pop(h).(distItem)
		if done[it.node] {
			continue
		}
		done[it.node] = true
		for _, a := range g.out[it.node] {
			if d := it.dist + a.w; d < dist[a.to] {
				dist[a.to] = d
				heap.Push(h, distItem{node: a.to, dist: d})
			}
		}
	}
	return dist
}

// bellmanFord allows negative weights. A negative cycle reachable from the
// source is an error; unreachable nodes report +Inf.
func bellmanFord(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	n := g.n()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[s] = 0
	for round := 0; round < n; round++ {
		changed := false
		for u, arcs := range g.out {
			if math.IsInf(dist[u], 1) {
				continue
			}
			for _, a := range arcs {
				if d := dist[u] + a.w; d < dist[a.to] {
					dist[a.to] = d
					changed = true
				}
			}
		}
		if !changed {
			return nodeColumns(g, dist), nil
		}
	}
	return nil, fmt.Errorf("%w: reachable from %d", ErrNegativeCycle, p.Source)
}

// floydWarshall reports every ordered pair of distinct nodes with a finite
// distance, ordered by src then dst.
func floydWarshall(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	n := g.n()
	if err := checkDense("floyd_warshall", n); err != nil {
		return nil, err
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = math.Inf(1)
			}
		}
	}
	for u, arcs := range g.out {
		for _, a := range arcs {
			dist[u][a.to] = min(dist[u][a.to], a.w)
		}
	}
	for k := 0; k < n; k++ {
		dk := dist[k]
		for i := 0; i < n; i++ {
			dik := dist[i][k]
			if math.IsInf(dik, 1) {
				continue
			}
			di := dist[i]
			for j := 0; j < n; j++ {
				if d := dik + dk[j]; d < di[j] {
					di[j] = d
				}
			}
		}
	}
	src, dst, out := []int64{}, []int64{}, []float64{}
	for i := 0; i < n; i++ {
		if dist[i][i] < 0 {
			return nil, fmt.Errorf("%w: through node %d", ErrNegativeCycle, g.ids[i])
		}
		for j := 0; j < n; j++ {
			if i == j || math.IsInf(dist[i][j], 1) {
				continue
			}
			src = append(src, g.ids[i])
			dst = append(dst, g.ids[j])
			out = append(out, dist[i][j])
		}
	}
	return &Result{Columns: []Column{IntColumn(src), IntColumn(dst), FloatColumn(out)}}, nil
}
