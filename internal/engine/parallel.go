package engine

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// chunkSize is the number of nodes one worker handles per task. It is fixed
// so that partial sums, and therefore results, do not depend on GOMAXPROCS.
const chunkSize = 512

// parallelFor runs fn over [0, n) in chunks on up to GOMAXPROCS goroutines.
// fn must only write state owned by its chunk or by its chunk index.
func parallelFor(n int, fn func(chunk, lo, hi int)) {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for c, lo := 0, 0; lo < n; c, lo = c+1, lo+chunkSize {
		hi := min(lo+chunkSize, n)
		g.Go(func() error {
			fn(c, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

func chunks(n int) int { return (n + chunkSize - 1) / chunkSize }

// parPageRank computes the same ranks as pageRank, pulling contributions
// along incoming arcs so each worker writes only its own nodes.
func parPageRank(e *EdgeList, p Params) (*Result, error) {
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, p.Directed)
	n := g.n()
	in := g.in
	if !g.directed {
		in = g.out
	}
	outW := make([]float64, n)
	for u, arcs := range g.out {
		for _, a := range arcs {
			outW[u] += a.w
		}
	}

	teleport := 1 / float64(n)
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = teleport
	}
	next := make([]float64, n)
	diffs := make([]float64, chunks(n))
	for it := 0; it < p.Iterations; it++ {
		dangling := 0.0
		for u, r := range rank {
			if outW[u] == 0 {
				dangling += r
			}
		}
		base := ((1 - p.Damping) + p.Damping*dangling) * teleport
		parallelFor(n, func(c, lo, hi int) {
			d := 0.0
			for v := lo; v < hi; v++ {
				sum := 0.0
				for _, a := range in[v] {
					// Zero-weight sources are dangling and already in base.
					if outW[a.to] == 0 {
						continue
					}
					sum += rank[a.to] / outW[a.to] * a.w
				}
				next[v] = base + p.Damping*sum
				d += math.Abs(next[v] - rank[v])
			}
			diffs[c] = d
		})
		diff := 0.0
		for _, d := range diffs {
			diff += d
		}
		rank, next = next, rank
		if diff < convergence {
			break
		}
	}
	return nodeColumns(g, rank), nil
}

// levels runs a level-synchronous BFS from s, expanding each frontier in
// parallel. Nodes within a level come out in ascending index order.
func levels(g *graph, s int) (order []int, dist []int) {
	dist = make([]int, g.n())
	for i := range dist {
		dist[i] = -1
	}
	dist[s] = 0
	frontier := []int{s}
	order = []int{s}
	for depth := 1; len(frontier) > 0; depth++ {
		found := make([][]int, chunks(len(frontier)))
		parallelFor(len(frontier), func(c, lo, hi int) {
			for _, u := range frontier[lo:hi] {
				for _, a := range g.out[u] {
					if dist[a.to] < 0 {
						found[c] = append(found[c], a.to)
					}
				}
			}
		})
		var next []int
		for _, part := range found {
			for _, v := range part {
				if dist[v] < 0 {
					dist[v] = depth
					next = append(next, v)
				}
			}
		}
		slices.Sort(next)
		order = append(order, next...)
		frontier = next
	}
	return order, dist
}

func parBFS(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	order, _ := levels(g, s)
	ids := make([]int64, len(order))
	for i, u := range order {
		ids[i] = g.ids[u]
	}
	return &Result{Columns: []Column{IntColumn(ids)}}, nil
}

// parShortestPaths reports hop distances from the source, +Inf for nodes
// that cannot be reached.
func parShortestPaths(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	_, hops := levels(g, s)
	dist := make([]float64, g.n())
	for i, h := range hops {
		if h < 0 {
			dist[i] = math.Inf(1)
		} else {
			dist[i] = float64(h)
		}
	}
	return nodeColumns(g, dist), nil
}

// parComponents propagates the smallest node index across edges until no
// label changes. Labels match components.
func parComponents(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	n := g.n()
	label := make([]int, n)
	for i := range label {
		label[i] = i
	}
	next := make([]int, n)
	changed := make([]bool, chunks(n))
	for {
		parallelFor(n, func(c, lo, hi int) {
			changed[c] = false
			for u := lo; u < hi; u++ {
				m := label[u]
				for _, a := range g.out[u] {
					m = min(m, label[a.to])
				}
				next[u] = m
				if m != label[u] {
					changed[c] = true
				}
			}
		})
		label, next = next, label
		if !slices.Contains(changed, true) {
			break
		}
	}
	return labelColumns(g, denseLabels(n, func(u int) int { return label[u] })), nil
}

// parTriangles counts triangles per node: each worker counts the closed
// neighbor pairs of its own nodes.
func parTriangles(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	tri := parNodeTriangles(g.simple())
	ids := make([]int64, g.n())
	copy(ids, g.ids)
	return &Result{Columns: []Column{IntColumn(ids), IntColumn(tri)}}, nil
}

func parNodeTriangles(adj [][]int) []int64 {
	tri := make([]int64, len(adj))
	parallelFor(len(adj), func(_, lo, hi int) {
		for u := lo; u < hi; u++ {
			var closed int64
			for _, v := range adj[u] {
				closed += int64(countCommon(adj[u], adj[v]))
			}
			tri[u] = closed / 2
		}
	})
	return tri
}

// parClustering reports the local clustering coefficient of every node, zero
// for nodes with fewer than two neighbors.
func parClustering(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	tri := parNodeTriangles(adj)
	coef := make([]float64, g.n())
	parallelFor(g.n(), func(_, lo, hi int) {
		for u := lo; u < hi; u++ {
			if d := len(adj[u]); d >= 2 {
				coef[u] = 2 * float64(tri[u]) / float64(d*(d-1))
			}
		}
	})
	return nodeColumns(g, coef), nil
}
