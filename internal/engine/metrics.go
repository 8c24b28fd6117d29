package engine

import "fmt"

// eccentricities returns each node's greatest hop distance in the undirected
// simple view.
func eccentricities(e *EdgeList) ([]int, error) {
	if e.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	g := newGraph(e, false)
	adj := g.simple()
	ecc := make([]int, g.n())
	for u := range adj {
		for _, d := range bfsDistances(adj, u) {
			if d < 0 {
				return nil, ErrDisconnected
			}
			ecc[u] = max(ecc[u], d)
		}
	}
	return ecc, nil
}

func diameter(e *EdgeList, _ Params) (float64, error) {
	ecc, err := eccentricities(e)
	if err != nil {
		return 0, err
	}
	best := 0
	for _, x := range ecc {
		best = max(best, x)
	}
	return float64(best), nil
}

func radius(e *EdgeList, _ Params) (float64, error) {
	ecc, err := eccentricities(e)
	if err != nil {
		return 0, err
	}
	best := ecc[0]
	for _, x := range ecc[1:] {
		best = min(best, x)
	}
	return float64(best), nil
}

// density is distinct non-loop edges over possible edges.
func density(e *EdgeList, p Params) (float64, error) {
	if e.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	g := newGraph(e, p.Directed)
	n := g.n()
	if n < 2 {
		return 0, nil
	}
	m := 0
	if p.Directed {
		seen := make([]bool, n)
		for u, arcs := range g.out {
			for _, a := range arcs {
				if a.to != u && !seen[a.to] {
					seen[a.to] = true
					m++
				}
			}
			for _, a := range arcs {
				seen[a.to] = false
			}
		}
		return float64(m) / float64(n*(n-1)), nil
	}
	for _, nbrs := range g.simple() {
		m += len(nbrs)
	}
	return float64(m/2) / (float64(n) * float64(n-1) / 2), nil
}

// nodeTriangles counts the triangles through each node.
func nodeTriangles(adj [][]int) []int64 {
	tri := make([]int64, len(adj))
	for u := range adj {
		for _, v := range adj[u] {
			if v <= u {
				continue
			}
			a, b := adj[u], adj[v]
			for i, j := 0, 0; i < len(a) && j < len(b); {
				switch {
				case a[i] < b[j]:
					i++
				case a[i] > b[j]:
					j++
				default:
					if w := a[i]; w > v {
						tri[u]++
						tri[v]++
						tri[w]++
					}
					i++
					j++
				}
			}
		}
	}
	return tri
}

func triangles(e *EdgeList, _ Params) (*Result, error) {
	g := newGraph(e, false)
	ids := make([]int64, g.n())
	copy(ids, g.ids)
	return &Result{Columns: []Column{IntColumn(ids), IntColumn(nodeTriangles(g.simple()))}}, nil
}

func avgClustering(e *EdgeList, _ Params) (float64, error) {
	if e.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	g := newGraph(e, false)
	adj := g.simple()
	tri := nodeTriangles(adj)
	sum := 0.0
	for u := range adj {
		d := len(adj[u])
		if d < 2 {
			continue
		}
		sum += 2 * float64(tri[u]) / float64(d*(d-1))
	}
	return sum / float64(g.n()), nil
}

// transitivity is the global clustering coefficient: closed triads over all
// connected triads.
func transitivity(e *EdgeList, _ Params) (float64, error) {
	if e.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	g := newGraph(e, false)
	adj := g.simple()
	tri := nodeTriangles(adj)
	var closed, triads float64
	for u := range adj {
		d := float64(len(adj[u]))
		closed += float64(tri[u])
		triads += d * (d - 1) / 2
	}
	if triads == 0 {
		return 0, nil
	}
	return closed / triads, nil
}

// assortativity is the Pearson correlation of degrees across the two ends of
// every edge of the undirected simple view, each edge counted both ways.
func assortativity(e *EdgeList, _ Params) (float64, error) {
	if e.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	g := newGraph(e, false)
	adj := g.simple()
	var m, sx, sxx, sxy float64
	for u := range adj {
		du := float64(len(adj[u]))
		for _, v := range adj[u] {
			dv := float64(len(adj[v]))
			m++
			sx += du
			sxx += du * du
			sxy += du * dv
		}
	}
	if m == 0 {
		return 0, fmt.Errorf("%w: assortativity needs at least one non-loop edge", ErrUndefined)
	}
	// Both ends see the same degree distribution, so the variances match.
	mean := sx / m
	variance := sxx/m - mean*mean
	if variance <= 1e-12 {
		return 0, fmt.Errorf("%w: assortativity of a graph whose edges all join equal degrees", ErrUndefined)
	}
	return (sxy/m - mean*mean) / variance, nil
}

// avgPathLength is the mean hop distance over ordered pairs of distinct
// nodes in the undirected simple view.
func avgPathLength(e *EdgeList, _ Params) (float64, error) {
	if e.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	g := newGraph(e, false)
	adj := g.simple()
	n := g.n()
	if n < 2 {
		return 0, nil
	}
	total := 0
	for u := range adj {
		for _, d := range bfsDistances(adj, u) {
			if d < 0 {
				return 0, ErrDisconnected
			}
			total += d
		}
	}
	return float64(total) / float64(n*(n-1)), nil
}
