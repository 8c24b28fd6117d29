package engine

// kHop returns the nodes within K hops of the start node, excluding the start
// itself, in breadth-first order.
func kHop(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	s, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	dist := make([]int, g.n())
	for i := range dist {
		dist[i] = -1
	}
	dist[s] = 0
	queue := []int{s}
	ids := []int64{}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		if dist[u] == p.K {
			continue
		}
		for _, a := range g.out[u] {
			if dist[a.to] < 0 {
				dist[a.to] = dist[u] + 1
				queue = append(queue, a.to)
				ids = append(ids, g.ids[a.to])
			}
		}
	}
	return &Result{Columns: []Column{IntColumn(ids)}}, nil
}

// egoGraph returns the input edges whose endpoints both lie within Radius
// hops of the center, in input order.
func egoGraph(e *EdgeList, p Params) (*Result, error) {
	g := newGraph(e, false)
	c, err := g.lookup(p.Source)
	if err != nil {
		return nil, err
	}
	dist := bfsDistances(g.simple(), c)
	inside := func(id int64) bool {
		d := dist[g.index[id]]
		return d >= 0 && d <= p.Radius
	}
	src := []int64{}
	dst := []int64{}
	for i := range e.Src {
		if inside(e.Src[i]) && inside(e.Dst[i]) {
			src = append(src, e.Src[i])
			dst = append(dst, e.Dst[i])
		}
	}
	return &Result{Columns: []Column{IntColumn(src), IntColumn(dst)}}, nil
}
