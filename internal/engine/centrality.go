package engine

import (
	"fmt"
	"math"
)

// convergence is the L1 change below which power iteration stops early.
const convergence = 1e-12

func checkWeights(e *EdgeList) error {
	for i, w := range e.Weights {
		if math.IsNaN(w) || w < 0 {
			return fmt.Errorf("%w: edge %d->%d has weight %v", ErrNegativeWeight, e.Src[i], e.Dst[i], w)
		}
	}
	return nil
}

func nodeColumns(g *graph, values []float64) *Result {
	ids := make([]int64, len(g.ids))
	copy(ids, g.ids)
	return &Result{Columns: []Column{IntColumn(ids), FloatColumn(values)}}
}

func pageRank(e *EdgeList, p Params) (*Result, error) {
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, p.Directed)
	n := g.n()
	teleport := make([]float64, n)
	for i := range teleport {
		teleport[i] = 1 / float64(n)
	}
	return nodeColumns(g, powerIterate(g, p.Damping, p.Iterations, teleport)), nil
}

func personalizedPageRank(e *EdgeList, p Params) (*Result, error) {
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, p.Directed)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	teleport := make([]float64, g.n())
	teleport[s] = 1
	return nodeColumns(g, powerIterate(g, p.Damping, p.Iterations, teleport)), nil
}

// powerIterate runs PageRank with the given teleport distribution. Mass from
// nodes without outgoing weight is redistributed along teleport, so the ranks
// keep summing to one.
func powerIterate(g *graph, damping float64, iterations int, teleport []float64) []float64 {
	n := g.n()
	outW := make([]float64, n)
	for u, arcs := range g.out {
		for _, a := range arcs {
			outW[u] += a.w
		}
	}
	rank := make([]float64, n)
	copy(rank, teleport)
	next := make([]float64, n)
	for it := 0; it < iterations; it++ {
		dangling := 0.0
		for u, r := range rank {
			if outW[u] == 0 {
				dangling += r
			}
		}
		for v := range next {
			next[v] = ((1 - damping) + damping*dangling) * teleport[v]
		}
		for u, arcs := range g.out {
			if outW[u] == 0 {
				continue
			}
			share := damping * rank[u] / outW[u]
			for _, a := range arcs {
				next[a.to] += share * a.w
			}
		}
		diff := 0.0
		for v := range rank {
			diff += math.Abs(next[v] - rank[v])
		}
		rank, next = next, rank
		if diff < convergence {
			break
		}
	}
	return rank
}

// degree counts edges per node. Undirected graphs report the same value in
// both columns and count a self-loop twice.
func degree(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, p.Directed)
	in := make([]float64, g.n())
	out := make([]float64, g.n())
	for i := range e.Src {
		u, v := g.index[e.Src[i]], g.index[e.Dst[i]]
		if p.Directed {
			out[u]++
			in[v]++
			continue
		}
		out[u]++
		out[v]++
	}
	if !p.Directed {
		copy(in, out)
	}
	ids := make([]int64, g.n())
	copy(ids, g.ids)
	return &Result{Columns: []Column{IntColumn(ids), FloatColumn(in), FloatColumn(out)}}, nil
}

// betweenness is Brandes' algorithm on the undirected simple view.
func betweenness(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	cb := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	pred := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			pred[i] = pred[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0
		stack = stack[:0]
		queue = append(queue[:0], s)
		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	// Each undirected path was counted from both ends.
	scale := 0.5
	if p.Normalized {
		scale = 0
		if n > 2 {
			scale = 1 / float64((n-1)*(n-2))
		}
	}
	if !p.Normalized || n > 2 {
		for i := range cb {
			cb[i] *= scale
		}
	}
	return nodeColumns(g, cb), nil
}

// closeness uses the Wasserman-Faust correction so nodes in small
// components are not over-rated.
func closeness(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	out := make([]float64, n)
	for u := 0; u < n; u++ {
		total, reached := 0, 0
		for _, d := range bfsDistances(adj, u) {
			if d > 0 {
				total += d
				reached++
			}
		}
		if total > 0 && n > 1 {
			out[u] = float64(reached) / float64(total) * float64(reached) / float64(n-1)
		}
	}
	return nodeColumns(g, out), nil
}

func harmonic(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	out := make([]float64, g.n())
	for u := range out {
		for _, d := range bfsDistances(adj, u) {
			if d > 0 {
				out[u] += 1 / float64(d)
			}
		}
	}
	return nodeColumns(g, out), nil
}

// normalizeL2 scales x to unit Euclidean length. A zero vector stays zero.
func normalizeL2(x []float64) {
	norm := 0.0
	for _, v := range x {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range x {
		x[i] /= norm
	}
}

// eigenvector iterates x <- (A + I)x on the undirected simple view. The
// identity shift keeps bipartite graphs from oscillating without changing
// the dominant eigenvector. Like PageRank it stops at MaxIter with the last
// iterate rather than failing.
func eigenvector(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	next := make([]float64, n)
	for it := 0; it < p.MaxIter; it++ {
		for u := range next {
			sum := x[u]
			for _, v := range adj[u] {
				sum += x[v]
			}
			next[u] = sum
		}
		normalizeL2(next)
		diff := 0.0
		for i := range x {
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < float64(n)*p.Tolerance {
			break
		}
	}
	return nodeColumns(g, x), nil
}

// katz solves x = Alpha*A*x + 1 by fixed-point iteration on the undirected
// simple view and reports the L2-normalized result. The series only
// converges for Alpha below the inverse of the largest eigenvalue.
func katz(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	x := make([]float64, n)
	if n == 0 {
		return nodeColumns(g, x), nil
	}
	next := make([]float64, n)
	for it := 0; it < p.MaxIter; it++ {
		for u := range next {
			sum := 0.0
			for _, v := range adj[u] {
				sum += x[v]
			}
			next[u] = p.Alpha*sum + 1
		}
		diff := 0.0
		for i := range x {
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if math.IsInf(diff, 0) || math.IsNaN(diff) {
			break
		}
		if diff < float64(n)*p.Tolerance {
			normalizeL2(x)
			return nodeColumns(g, x), nil
		}
	}
	return nil, fmt.Errorf("%w: katz did not converge in %d iterations; lower alpha=%v", ErrInvalidParameter, p.MaxIter, p.Alpha)
}

// voteRank elects up to Seeds spreaders. Each round the node with the most
// neighbor voting ability wins (ties to the smallest id), loses its own
// ability and weakens its neighbors by one over the average degree.
func voteRank(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	links := 0
	for _, nb := range adj {
		links += len(nb)
	}
	ids, rounds := []int64{}, []int64{}
	if links == 0 {
		return &Result{Columns: []Column{IntColumn(ids), IntColumn(rounds)}}, nil
	}
	decay := float64(n) / float64(links)
	ability := make([]float64, n)
	for i := range ability {
		ability[i] = 1
	}
	elected := make([]bool, n)
	for round := 1; round <= p.Seeds; round++ {
		best, bestScore := -1, 0.0
		for u := range adj {
			if elected[u] {
				continue
			}
			score := 0.0
			for _, v := range adj[u] {
				score += ability[v]
			}
			if score > bestScore {
				best, bestScore = u, score
			}
		}
		if best < 0 {
			break
		}
		elected[best] = true
		ability[best] = 0
		for _, v := range adj[best] {
			ability[v] = max(0, ability[v]-decay)
		}
		ids = append(ids, g.ids[best])
		rounds = append(rounds, int64(round))
	}
	return &Result{Columns: []Column{IntColumn(ids), IntColumn(rounds)}}, nil
}
