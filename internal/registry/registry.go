// Package registry keeps named in-memory graphs for the lifetime of a
// session. A single RWMutex guards the whole map; there are no per-graph
// locks.
package registry

import (
	"errors"
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"onager/internal/engine"
)

var (
	ErrGraphExists   = errors.New("graph already exists")
	ErrGraphNotFound = errors.New("graph not found")
	ErrNodeNotFound  = errors.New("node not found")
	ErrInvalidName   = errors.New("invalid graph name")
)

type degrees struct {
	in, out int64
}

type graph struct {
	directed bool
	// nodes is only used for lookups, never iterated.
	nodes   map[int64]*degrees
	src     []int64
	dst     []int64
	weights []float64
}

func (g *graph) node(id int64) *degrees {
	d, ok := g.nodes[id]
	if !ok {
		d = &degrees{}
		g.nodes[id] = d
	}
	return d
}

// Info summarizes one graph.
type Info struct {
	Name     string `json:"name"`
	Directed bool   `json:"directed"`
	Nodes    int64  `json:"node_count"`
	Edges    int64  `json:"edge_count"`
}

type Registry struct {
	mu     sync.RWMutex
	graphs *orderedmap.OrderedMap[string, *graph]
}

func New() *Registry {
	return &Registry{graphs: orderedmap.New[string, *graph]()}
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	return nil
}

func (r *Registry) get(name string) (*graph, error) {
	g, ok := r.graphs.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, name)
	}
	return g, nil
}

// Create registers an empty graph. Names are unique across live graphs.
func (r *Registry) Create(name string, directed bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graphs.Get(name); ok {
		return fmt.Errorf("%w: %s", ErrGraphExists, name)
	}
	r.graphs.Set(name, &graph{directed: directed, nodes: make(map[int64]*degrees)})
	return nil
}

// Drop removes a graph and everything in it.
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graphs.Delete(name); !ok {
		return fmt.Errorf("%w: %s", ErrGraphNotFound, name)
	}
	return nil
}

// AddNode adds an isolated node. Adding a node that already exists succeeds
// and changes nothing.
func (r *Registry) AddNode(name string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, err := r.get(name)
	if err != nil {
		return err
	}
	g.node(id)
	return nil
}

// AddEdge appends an edge, creating missing endpoints. Parallel edges are
// kept. In an undirected graph both endpoints gain one in- and one
// out-degree, so a self-loop counts twice.
func (r *Registry) AddEdge(name string, src, dst int64, weight float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, err := r.get(name)
	if err != nil {
		return err
	}
	s, d := g.node(src), g.node(dst)
	if g.directed {
		s.out++
		d.in++
	} else {
		s.in++
		s.out++
		d.in++
		d.out++
	}
	g.src = append(g.src, src)
	g.dst = append(g.dst, dst)
	g.weights = append(g.weights, weight)
	return nil
}

func (r *Registry) NodeCount(name string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, err := r.get(name)
	if err != nil {
		return 0, err
	}
	return int64(len(g.nodes)), nil
}

func (r *Registry) EdgeCount(name string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, err := r.get(name)
	if err != nil {
		return 0, err
	}
	return int64(len(g.src)), nil
}

func (r *Registry) degrees(name string, id int64) (degrees, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, err := r.get(name)
	if err != nil {
		return degrees{}, err
	}
	d, ok := g.nodes[id]
	if !ok {
		return degrees{}, fmt.Errorf("%w: %d in %s", ErrNodeNotFound, id, name)
	}
	return *d, nil
}

func (r *Registry) InDegree(name string, id int64) (int64, error) {
	d, err := r.degrees(name, id)
	return d.in, err
}

func (r *Registry) OutDegree(name string, id int64) (int64, error) {
	d, err := r.degrees(name, id)
	return d.out, err
}

// List returns every graph in creation order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, r.graphs.Len())
	for pair := r.graphs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Info{
			Name:     pair.Key,
			Directed: pair.Value.directed,
			Nodes:    int64(len(pair.Value.nodes)),
			Edges:    int64(len(pair.Value.src)),
		})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graphs.Len()
}

// Edges returns a copy of a graph's edges in insertion order, ready to feed
// an algorithm, and whether the graph is directed.
func (r *Registry) Edges(name string) (*engine.EdgeList, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, err := r.get(name)
	if err != nil {
		return nil, false, err
	}
	e := &engine.EdgeList{
		Src:     make([]int64, len(g.src)),
		Dst:     make([]int64, len(g.dst)),
		Weights: make([]float64, len(g.weights)),
	}
	copy(e.Src, g.src)
	copy(e.Dst, g.dst)
	copy(e.Weights, g.weights)
	return e, g.directed, nil
}
