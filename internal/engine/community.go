package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

func labelColumns(g *graph, labels []int64) *Result {
	ids := make([]int64, g.n())
	copy(ids, g.ids)
	return &Result{Columns: []Column{IntColumn(ids), IntColumn(labels)}}
}

// components labels weakly connected components. Component ids are dense and
// numbered by each component's smallest node id.
func components(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	uf := newUnionFind(g.n())
	for i := range e.Src {
		uf.union(g.index[e.Src[i]], g.index[e.Dst[i]])
	}
	return labelColumns(g, denseLabels(g.n(), uf.find)), nil
}

// denseLabels numbers groups 0, 1, 2... in order of first appearance by node
// index.
func denseLabels(n int, group func(int) int) []int64 {
	remap := make([]int64, n)
	for i := range remap {
		remap[i] = -1
	}
	labels := make([]int64, n)
	var next int64
	for u := 0; u < n; u++ {
		c := group(u)
		if remap[c] < 0 {
			remap[c] = next
			next++
		}
		labels[u] = remap[c]
	}
	return labels
}

// labelPropagation updates nodes in ascending id order, each taking the most
// frequent label among its neighbors. Ties go to the smallest label. Labels
// start as the node ids themselves.
func labelPropagation(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	adj := g.simple()
	labels := make([]int64, g.n())
	copy(labels, g.ids)

	var seen []int64
	for it := 0; it < p.MaxIter; it++ {
		changed := false
		for u := range adj {
			if len(adj[u]) == 0 {
				continue
			}
			seen = seen[:0]
			for _, v := range adj[u] {
				seen = append(seen, labels[v])
			}
			slices.Sort(seen)
			best, bestCount := seen[0], 0
			for i := 0; i < len(seen); {
				j := i
				for j < len(seen) && seen[j] == seen[i] {
					j++
				}
				if j-i > bestCount {
					best, bestCount = seen[i], j-i
				}
				i = j
			}
			if labels[u] != best {
				labels[u] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labelColumns(g, labels), nil
}

// =============================================================================
// Louvain
// =============================================================================

type weightedArc struct {
	to int
	w  float64
}

// louvainLevel is one aggregation level. Self-loop weight is held apart from
// adj and counts twice toward a node's degree.
type louvainLevel struct {
	adj  [][]weightedArc
	self []float64
}

func (lv *louvainLevel) degree(i int) float64 {
	k := 2 * lv.self[i]
	for _, a := range lv.adj[i] {
		k += a.w
	}
	return k
}

// mergeArcs sorts arcs by target and combines parallel ones.
func mergeArcs(arcs []weightedArc) []weightedArc {
	slices.SortStableFunc(arcs, func(a, b weightedArc) int { return a.to - b.to })
	out := arcs[:0]
	for _, a := range arcs {
		if n := len(out); n > 0 && out[n-1].to == a.to {
			out[n-1].w += a.w
			continue
		}
		out = append(out, a)
	}
	return out
}

func newLouvainLevel(g *graph) *louvainLevel {
	lv := &louvainLevel{adj: make([][]weightedArc, g.n()), self: make([]float64, g.n())}
	for u, arcs := range g.out {
		for _, a := range arcs {
			if a.to == u {
				lv.self[u] += a.w
				continue
			}
			lv.adj[u] = append(lv.adj[u], weightedArc{to: a.to, w: a.w})
		}
	}
	for u := range lv.adj {
		lv.adj[u] = mergeArcs(lv.adj[u])
	}
	return lv
}

// moveNodes runs the local moving phase and reports whether any node changed
// community.
func (lv *louvainLevel) moveNodes(r *rand.Rand) ([]int, bool) {
	n := len(lv.adj)
	comm := make([]int, n)
	k := make([]float64, n)
	tot := make([]float64, n)
	m2 := 0.0
	for i := range comm {
		comm[i] = i
		k[i] = lv.degree(i)
		tot[i] = k[i]
		m2 += k[i]
	}
	if m2 == 0 {
		return comm, false
	}

	order := r.Perm(n)
	wTo := make([]float64, n)
	touched := make([]int, 0, n)
	seen := make([]bool, n)
	improved := false
	for {
		moved := 0
		for _, i := range order {
			ci := comm[i]
			touched = touched[:0]
			for _, a := range lv.adj[i] {
				c := comm[a.to]
				if !seen[c] {
					seen[c] = true
					touched = append(touched, c)
				}
				wTo[c] += a.w
			}

			tot[ci] -= k[i]
			best := ci
			bestGain := wTo[ci] - tot[ci]*k[i]/m2
			for _, c := range touched {
				if gain := wTo[c] - tot[c]*k[i]/m2; gain > bestGain+1e-12 {
					best, bestGain = c, gain
				}
			}
			tot[best] += k[i]
			comm[i] = best
			if best != ci {
				moved++
			}

			for _, c := range touched {
				wTo[c] = 0
				seen[c] = false
			}
		}
		if moved == 0 {
			return comm, improved
		}
		improved = true
	}
}

// aggregate collapses communities into nodes. comm is renumbered densely in
// place.
func (lv *louvainLevel) aggregate(comm []int) *louvainLevel {
	n := len(comm)
	remap := make([]int, n)
	for i := range remap {
		remap[i] = -1
	}
	next := 0
	for i, c := range comm {
		if remap[c] < 0 {
			remap[c] = next
			next++
		}
		comm[i] = remap[c]
	}

	agg := &louvainLevel{adj: make([][]weightedArc, next), self: make([]float64, next)}
	for i := 0; i < n; i++ {
		ci := comm[i]
		agg.self[ci] += lv.self[i]
		for _, a := range lv.adj[i] {
			cj := comm[a.to]
			if ci == cj {
				// Internal edges are seen from both endpoints.
				agg.self[ci] += a.w / 2
				continue
			}
			agg.adj[ci] = append(agg.adj[ci], weightedArc{to: cj, w: a.w})
		}
	}
	for c := range agg.adj {
		agg.adj[c] = mergeArcs(agg.adj[c])
	}
	return agg
}

// louvain maximizes modularity by alternating local moves and aggregation.
// Node visiting order is shuffled from the seed, so a fixed seed gives a fixed
// partition. Communities are numbered by their smallest node id.
func louvain(e *EdgeList, p Params) (*Result, error) {
	if err := checkWeights(e); err != nil {
		return nil, err
	}
	g := newGraph(e, false)
	r := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	membership := make([]int, g.n())
	for i := range membership {
		membership[i] = i
	}
	lv := newLouvainLevel(g)
	for len(lv.adj) > 0 {
		comm, improved := lv.moveNodes(r)
		if !improved {
			break
		}
		agg := lv.aggregate(comm)
		for i, c := range membership {
			membership[i] = comm[c]
		}
		if len(agg.adj) == len(lv.adj) {
			break
		}
		lv = agg
	}
	return labelColumns(g, denseLabels(g.n(), func(u int) int { return membership[u] })), nil
}

// MaxDenseNodes bounds the algorithms that are quadratic in memory or cubic
// in time (floyd_warshall, girvan_newman).
const MaxDenseNodes = 2000

func checkDense(name string, n int) error {
	if n > MaxDenseNodes {
		return fmt.Errorf("%w: %s supports at most %d nodes, got %d", ErrTooLarge, name, MaxDenseNodes, n)
	}
	return nil
}

// girvanNewman removes the edge of highest betweenness until the undirected
// simple view splits into at least Communities components or runs out of
// edges. Ties go to the edge with the smallest endpoint indices.
func girvanNewman(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	if err := checkDense("girvan_newman", g.n()); err != nil {
		return nil, err
	}
	adj := g.simple()
	for componentCount(adj) < p.Communities {
		u, v, ok := maxBetweennessEdge(adj)
		if !ok {
			break
		}
		adj[u] = slices.DeleteFunc(adj[u], func(x int) bool { return x == v })
		adj[v] = slices.DeleteFunc(adj[v], func(x int) bool { return x == u })
	}
	uf := newUnionFind(g.n())
	for u, nb := range adj {
		for _, v := range nb {
			uf.union(u, v)
		}
	}
	return labelColumns(g, denseLabels(g.n(), uf.find)), nil
}

func componentCount(adj [][]int) int {
	uf := newUnionFind(len(adj))
	count := len(adj)
	for u, nb := range adj {
		for _, v := range nb {
			if uf.union(u, v) {
				count--
			}
		}
	}
	return count
}

// maxBetweennessEdge runs Brandes' accumulation over edges and returns the
// edge with the highest score.
func maxBetweennessEdge(adj [][]int) (int, int, bool) {
	n := len(adj)
	type edge struct{ u, v int }
	score := map[edge]float64{}
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	pred := make([][]int, n)
	for s := 0; s < n; s++ {
		for i := range sigma {
			sigma[i], dist[i], delta[i] = 0, -1, 0
			pred[i] = pred[i][:0]
		}
		sigma[s], dist[s] = 1, 0
		stack := []int{}
		queue := []int{s}
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
				c := sigma[v] / sigma[w] * (1 + delta[w])
				score[edge{min(v, w), max(v, w)}] += c
				delta[v] += c
			}
		}
	}

	bu, bv, best, found := 0, 0, 0.0, false
	for u, nb := range adj {
		for _, v := range nb {
			if v <= u {
				continue
			}
			if c := score[edge{u, v}]; !found || c > best+1e-9 {
				bu, bv, best, found = u, v, c, true
			}
		}
	}
	return bu, bv, found
}
