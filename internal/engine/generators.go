package engine

import (
	"fmt"
	"math/rand/v2"
)

// Generator bounds. erdos_renyi draws once per node pair, so its n is capped
// far below the others.
const (
	MaxGeneratedNodes  = 1_000_000
	MaxGeneratedEdges  = 10_000_000
	MaxErdosRenyiNodes = 20_000
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func checkGeneratorSize(n int) error {
	if n > MaxGeneratedNodes {
		return fmt.Errorf("%w: n=%d exceeds %d", ErrInvalidParameter, n, MaxGeneratedNodes)
	}
	return nil
}

func checkGeneratedEdges(name string, expected float64) error {
	if expected > MaxGeneratedEdges {
		return fmt.Errorf("%w: %s would generate about %.0f edges, limit is %d", ErrInvalidParameter, name, expected, MaxGeneratedEdges)
	}
	return nil
}

func edgeColumns(src, dst []int64) *Result {
	if src == nil {
		src, dst = []int64{}, []int64{}
	}
	return &Result{Columns: []Column{IntColumn(src), IntColumn(dst)}}
}

// erdosRenyi draws each of the n(n-1)/2 undirected pairs with probability P.
func erdosRenyi(_ *EdgeList, p Params) (*Result, error) {
	if p.N > MaxErdosRenyiNodes {
		return nil, fmt.Errorf("%w: erdos_renyi n=%d exceeds %d", ErrInvalidParameter, p.N, MaxErdosRenyiNodes)
	}
	pairs := float64(p.N) * float64(p.N-1) / 2
	if err := checkGeneratedEdges("erdos_renyi", pairs*p.P); err != nil {
		return nil, err
	}
	r := newRand(p.Seed)
	var src, dst []int64
	for u := 0; u < p.N; u++ {
		for v := u + 1; v < p.N; v++ {
			if r.Float64() < p.P {
				src = append(src, int64(u))
				dst = append(dst, int64(v))
			}
		}
	}
	return edgeColumns(src, dst), nil
}

// barabasiAlbert grows a graph by preferential attachment: every new node
// links to M distinct existing nodes picked proportionally to their degree.
func barabasiAlbert(_ *EdgeList, p Params) (*Result, error) {
	if err := checkGeneratorSize(p.N); err != nil {
		return nil, err
	}
	if p.M < 1 || p.M >= p.N {
		return nil, fmt.Errorf("%w: barabasi_albert needs 1 <= m < n, got m=%d n=%d", ErrInvalidParameter, p.M, p.N)
	}
	if err := checkGeneratedEdges("barabasi_albert", float64(p.N-p.M)*float64(p.M)); err != nil {
		return nil, err
	}
	r := newRand(p.Seed)
	targets := make([]int64, p.M)
	for i := range targets {
		targets[i] = int64(i)
	}
	var src, dst, repeated []int64
	picked := make(map[int64]bool, p.M)
	for source := int64(p.M); source < int64(p.N); source++ {
		for _, t := range targets {
			src = append(src, source)
			dst = append(dst, t)
			repeated = append(repeated, t, source)
		}
		clear(picked)
		targets = targets[:0]
		for len(targets) < p.M {
			t := repeated[r.IntN(len(repeated))]
			if !picked[t] {
				picked[t] = true
				targets = append(targets, t)
			}
		}
	}
	return edgeColumns(src, dst), nil
}

// wattsStrogatz builds a ring lattice where each node links to its K/2
// nearest neighbors on each side, then rewires each lattice edge with
// probability Beta to a uniformly chosen node, avoiding loops and duplicates.
func wattsStrogatz(_ *EdgeList, p Params) (*Result, error) {
	if err := checkGeneratorSize(p.N); err != nil {
		return nil, err
	}
	if p.K >= p.N {
		return nil, fmt.Errorf("%w: watts_strogatz needs k < n, got k=%d n=%d", ErrInvalidParameter, p.K, p.N)
	}
	if err := checkGeneratedEdges("watts_strogatz", float64(p.N)*float64(p.K/2)); err != nil {
		return nil, err
	}
	n := int64(p.N)
	type pair struct{ u, v int64 }
	key := func(u, v int64) pair {
		if u > v {
			u, v = v, u
		}
		return pair{u, v}
	}

	var edges []pair
	present := make(map[pair]bool)
	degree := make([]int64, n)
	for j := int64(1); j <= int64(p.K/2); j++ {
		for u := int64(0); u < n; u++ {
			v := (u + j) % n
			edges = append(edges, pair{u, v})
			present[key(u, v)] = true
			degree[u]++
			degree[v]++
		}
	}

	r := newRand(p.Seed)
	for i, ed := range edges {
		if r.Float64() >= p.Beta || degree[ed.u] >= n-1 {
			continue
		}
		w := r.Int64N(n)
		for w == ed.u || present[key(ed.u, w)] {
			w = r.Int64N(n)
		}
		delete(present, key(ed.u, ed.v))
		degree[ed.v]--
		present[key(ed.u, w)] = true
		degree[w]++
		edges[i] = pair{ed.u, w}
	}

	src := make([]int64, len(edges))
	dst := make([]int64, len(edges))
	for i, ed := range edges {
		src[i], dst[i] = ed.u, ed.v
	}
	return edgeColumns(src, dst), nil
}
