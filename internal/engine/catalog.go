package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind describes the shape of an algorithm's output.
type Kind int

const (
	NodeWise  Kind = iota // one row per node
	PairWise              // one row per node pair or edge
	Scalar                // exactly one value
	Generator             // produces edges, takes no edge input
)

func (k Kind) String() string {
	switch k {
	case NodeWise:
		return "node"
	case PairWise:
		return "pair"
	case Scalar:
		return "scalar"
	case Generator:
		return "generator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type ParamType int

const (
	ParamInt ParamType = iota
	ParamFloat
	ParamBool
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "BIGINT"
	case ParamFloat:
		return "DOUBLE"
	default:
		return "BOOLEAN"
	}
}

// ParamSpec declares one argument. Positional arguments come right after the
// edge input (or first, for generators) in declaration order; the rest are
// named. Required named arguments have no usable default.
type ParamSpec struct {
	Name       string
	Type       ParamType
	Positional bool
	Required   bool
}

// Algorithm is one catalog entry. Run must be a pure function of its inputs.
type Algorithm struct {
	Name string
	// Group is the short family prefix of the SQL name (ctr, cmm, trv...).
	Group   string
	Kind    Kind
	Columns []ColumnSpec
	Params  []ParamSpec
	// Defaults are applied before named arguments.
	Defaults Params
	// Weighted algorithms read a third edge column when present.
	Weighted bool
	// EmptyIsError marks algorithms that must run (and fail) on empty input
	// instead of short-circuiting to an empty result.
	EmptyIsError bool

	run    func(*EdgeList, Params) (*Result, error)
	scalar func(*EdgeList, Params) (float64, error)
}

// Run validates the input and executes the algorithm.
func (a *Algorithm) Run(e *EdgeList, p Params) (*Result, error) {
	if e == nil {
		e = &EdgeList{}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := validateParams(p); err != nil {
		return nil, err
	}
	if a.Kind == Scalar {
		v, err := a.scalar(e, p)
		if err != nil {
			return nil, err
		}
		return a.ScalarResult(v), nil
	}
	return a.run(e, p)
}

// ScalarResult wraps a scalar value as the algorithm's one-row result.
func (a *Algorithm) ScalarResult(v float64) *Result {
	col := NewColumn(a.Columns[0].Type, 1)
	if col.Type == Int64 {
		col.Ints[0] = int64(v)
	} else {
		col.Floats[0] = v
	}
	return &Result{Columns: []Column{col}}
}

// Scalar executes a scalar algorithm and returns its single value.
func (a *Algorithm) Scalar(e *EdgeList, p Params) (float64, error) {
	if a.Kind != Scalar {
		return 0, fmt.Errorf("%s is not a scalar algorithm", a.Name)
	}
	if e == nil {
		e = &EdgeList{}
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if err := validateParams(p); err != nil {
		return 0, err
	}
	return a.scalar(e, p)
}

// SQLName is the name the function is registered under in the host.
func (a *Algorithm) SQLName() string {
	return "onager_" + a.Group + "_" + a.Name
}

func (a *Algorithm) Param(name string) (ParamSpec, bool) {
	for _, ps := range a.Params {
		if ps.Name == name {
			return ps, true
		}
	}
	return ParamSpec{}, false
}

// Signature renders "name(args) -> (columns)" for listings.
func (a *Algorithm) Signature() string {
	var args, cols []string
	if a.Kind != Generator {
		args = append(args, "edges")
	}
	for _, p := range a.Params {
		switch {
		case p.Positional:
			args = append(args, p.Name+" "+p.Type.String())
		case p.Required:
			args = append(args, p.Name+" := "+p.Type.String())
		default:
			args = append(args, "["+p.Name+" := "+p.Type.String()+"]")
		}
	}
	for _, c := range a.Columns {
		cols = append(cols, c.Name+" "+c.Type.String())
	}
	return fmt.Sprintf("%s(%s) -> (%s)", a.SQLName(), strings.Join(args, ", "), strings.Join(cols, ", "))
}

// Set assigns a named parameter from a host value.
func (p *Params) Set(name string, v any) error {
	switch name {
	case "directed":
		return setBool(&p.Directed, name, v)
	case "normalized":
		return setBool(&p.Normalized, name, v)
	case "damping":
		return setFloat(&p.Damping, name, v)
	case "p":
		return setFloat(&p.P, name, v)
	case "beta":
		return setFloat(&p.Beta, name, v)
	case "alpha":
		return setFloat(&p.Alpha, name, v)
	case "tolerance":
		return setFloat(&p.Tolerance, name, v)
	case "num_seeds":
		return setInt(&p.Seeds, name, v)
	case "communities":
		return setInt(&p.Communities, name, v)
	case "iterations":
		return setInt(&p.Iterations, name, v)
	case "max_iter":
		return setInt(&p.MaxIter, name, v)
	case "k":
		return setInt(&p.K, name, v)
	case "radius":
		return setInt(&p.Radius, name, v)
	case "n":
		return setInt(&p.N, name, v)
	case "m":
		return setInt(&p.M, name, v)
	case "source", "start", "center":
		i, err := toInt64(name, v)
		if err != nil {
			return err
		}
		p.Source = i
		return nil
	case "seed":
		i, err := toInt64(name, v)
		if err != nil {
			return err
		}
		p.Seed = uint64(i)
		return nil
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameter, name)
	}
}

func setBool(dst *bool, name string, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%w: %s must be BOOLEAN, got %T", ErrInvalidParameter, name, v)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, name string, v any) error {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int:
		f = float64(x)
	default:
		return fmt.Errorf("%w: %s must be DOUBLE, got %T", ErrInvalidParameter, name, v)
	}
	if err := checkFinite(name, f); err != nil {
		return err
	}
	*dst = f
	return nil
}

func setInt(dst *int, name string, v any) error {
	i, err := toInt64(name, v)
	if err != nil {
		return err
	}
	*dst = int(i)
	return nil
}

func toInt64(name string, v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("%w: %s must be BIGINT, got %T", ErrInvalidParameter, name, v)
	}
}

var validate = validator.New()

var paramNames = map[string]string{
	"Damping":     "damping",
	"Iterations":  "iterations",
	"MaxIter":     "max_iter",
	"K":           "k",
	"Radius":      "radius",
	"N":           "n",
	"M":           "m",
	"P":           "p",
	"Beta":        "beta",
	"Alpha":       "alpha",
	"Tolerance":   "tolerance",
	"Seeds":       "num_seeds",
	"Communities": "communities",
}

func validateParams(p Params) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		name := paramNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		return fmt.Errorf("%w: %s=%v violates %s=%s", ErrInvalidParameter, name, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
}

func nodeNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
}

// =============================================================================
// Catalog
// =============================================================================

func withDefaults(f func(*Params)) Params {
	p := DefaultParams()
	if f != nil {
		f(&p)
	}
	return p
}

var (
	colNode = ColumnSpec{Name: "node_id", Type: Int64}
	colSrc  = ColumnSpec{Name: "src", Type: Int64}
	colDst  = ColumnSpec{Name: "dst", Type: Int64}
	colN1   = ColumnSpec{Name: "node1", Type: Int64}
	colN2   = ColumnSpec{Name: "node2", Type: Int64}

	pDirected   = ParamSpec{Name: "directed", Type: ParamBool}
	pDamping    = ParamSpec{Name: "damping", Type: ParamFloat}
	pIterations = ParamSpec{Name: "iterations", Type: ParamInt}
	pSeed       = ParamSpec{Name: "seed", Type: ParamInt}
	pTolerance  = ParamSpec{Name: "tolerance", Type: ParamFloat}
)

var catalog = []*Algorithm{
	{
		Name:     "pagerank",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "rank", Type: Float64}},
		Params:   []ParamSpec{pDamping, pIterations, pDirected},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      pageRank,
	},
	{
		Name:     "personalized_pagerank",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "rank", Type: Float64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDamping, pIterations, pDirected},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      personalizedPageRank,
	},
	{
		Name:     "degree",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "in_degree", Type: Float64}, {Name: "out_degree", Type: Float64}},
		Params:   []ParamSpec{pDirected},
		Defaults: withDefaults(nil),
		run:      degree,
	},
	{
		Name:     "betweenness",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "betweenness", Type: Float64}},
		Params:   []ParamSpec{{Name: "normalized", Type: ParamBool}},
		Defaults: withDefaults(nil),
		run:      betweenness,
	},
	{
		Name:     "closeness",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "closeness", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      closeness,
	},
	{
		Name:     "harmonic",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "harmonic", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      harmonic,
	},
	{
		Name:     "eigenvector",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "eigenvector", Type: Float64}},
		Params:   []ParamSpec{{Name: "max_iter", Type: ParamInt}, pTolerance},
		Defaults: withDefaults(nil),
		run:      eigenvector,
	},
	{
		Name:     "katz",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "katz", Type: Float64}},
		Params:   []ParamSpec{{Name: "alpha", Type: ParamFloat}, {Name: "max_iter", Type: ParamInt}, pTolerance},
		Defaults: withDefaults(nil),
		run:      katz,
	},
	{
		Name:     "voterank",
		Group:    "ctr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "round", Type: Int64}},
		Params:   []ParamSpec{{Name: "num_seeds", Type: ParamInt}},
		Defaults: withDefaults(nil),
		run:      voteRank,
	},
	{
		Name:     "components",
		Group:    "cmm",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "component", Type: Int64}},
		Defaults: withDefaults(nil),
		run:      components,
	},
	{
		Name:     "label_prop",
		Group:    "cmm",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "label", Type: Int64}},
		Params:   []ParamSpec{{Name: "max_iter", Type: ParamInt}},
		Defaults: withDefaults(nil),
		run:      labelPropagation,
	},
	{
		Name:     "louvain",
		Group:    "cmm",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "community", Type: Int64}},
		Params:   []ParamSpec{pSeed},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      louvain,
	},
	{
		Name:     "girvan_newman",
		Group:    "cmm",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "community", Type: Int64}},
		Params:   []ParamSpec{{Name: "communities", Type: ParamInt}},
		Defaults: withDefaults(nil),
		run:      girvanNewman,
	},
	{
		Name:     "bfs",
		Group:    "trv",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "order", Type: Int64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(nil),
		run:      bfs,
	},
	{
		Name:     "dfs",
		Group:    "trv",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "order", Type: Int64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(nil),
		run:      dfs,
	},
	{
		Name:     "dijkstra",
		Group:    "pth",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "distance", Type: Float64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(func(p *Params) { p.Directed = false }),
		Weighted: true,
		run:      dijkstra,
	},
	{
		Name:     "bellman_ford",
		Group:    "pth",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "distance", Type: Float64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      bellmanFord,
	},
	{
		Name:     "floyd_warshall",
		Group:    "pth",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colSrc, colDst, {Name: "distance", Type: Float64}},
		Params:   []ParamSpec{pDirected},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      floydWarshall,
	},
	{
		Name:     "jaccard",
		Group:    "lnk",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colN1, colN2, {Name: "coefficient", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      jaccard,
	},
	{
		Name:     "adamic_adar",
		Group:    "lnk",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colN1, colN2, {Name: "score", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      adamicAdar,
	},
	{
		Name:     "common_neighbors",
		Group:    "lnk",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colN1, colN2, {Name: "count", Type: Int64}},
		Defaults: withDefaults(nil),
		run:      commonNeighbors,
	},
	{
		Name:     "pref_attach",
		Group:    "lnk",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colN1, colN2, {Name: "score", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      prefAttachment,
	},
	{
		Name:     "resource_alloc",
		Group:    "lnk",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colN1, colN2, {Name: "score", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      resourceAllocation,
	},
	{
		Name:         "diameter",
		Group:        "mtr",
		Kind:         Scalar,
		Columns:      []ColumnSpec{{Name: "diameter", Type: Int64}},
		Defaults:     withDefaults(nil),
		EmptyIsError: true,
		scalar:       diameter,
	},
	{
		Name:         "radius",
		Group:        "mtr",
		Kind:         Scalar,
		Columns:      []ColumnSpec{{Name: "radius", Type: Int64}},
		Defaults:     withDefaults(nil),
		EmptyIsError: true,
		scalar:       radius,
	},
	{
		Name:     "density",
		Group:    "mtr",
		Kind:     Scalar,
		Columns:  []ColumnSpec{{Name: "density", Type: Float64}},
		Params:   []ParamSpec{pDirected},
		Defaults: withDefaults(func(p *Params) { p.Directed = false }),
		scalar:   density,
	},
	{
		Name:     "avg_clustering",
		Group:    "mtr",
		Kind:     Scalar,
		Columns:  []ColumnSpec{{Name: "avg_clustering", Type: Float64}},
		Defaults: withDefaults(nil),
		scalar:   avgClustering,
	},
	{
		Name:     "transitivity",
		Group:    "mtr",
		Kind:     Scalar,
		Columns:  []ColumnSpec{{Name: "transitivity", Type: Float64}},
		Defaults: withDefaults(nil),
		scalar:   transitivity,
	},
	{
		Name:         "assortativity",
		Group:        "mtr",
		Kind:         Scalar,
		Columns:      []ColumnSpec{{Name: "assortativity", Type: Float64}},
		Defaults:     withDefaults(nil),
		EmptyIsError: true,
		scalar:       assortativity,
	},
	{
		Name:         "avg_path_length",
		Group:        "mtr",
		Kind:         Scalar,
		Columns:      []ColumnSpec{{Name: "avg_path_length", Type: Float64}},
		Defaults:     withDefaults(nil),
		EmptyIsError: true,
		scalar:       avgPathLength,
	},
	{
		Name:     "triangles",
		Group:    "mtr",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "triangles", Type: Int64}},
		Defaults: withDefaults(nil),
		run:      triangles,
	},
	{
		Name:     "kruskal",
		Group:    "mst",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colSrc, colDst, {Name: "weight", Type: Float64}},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      kruskal,
	},
	{
		Name:     "k_hop",
		Group:    "sub",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode},
		Params:   []ParamSpec{{Name: "start", Type: ParamInt, Required: true}, {Name: "k", Type: ParamInt}},
		Defaults: withDefaults(nil),
		run:      kHop,
	},
	{
		Name:     "ego_graph",
		Group:    "sub",
		Kind:     PairWise,
		Columns:  []ColumnSpec{colSrc, colDst},
		Params:   []ParamSpec{{Name: "center", Type: ParamInt, Required: true}, {Name: "radius", Type: ParamInt}},
		Defaults: withDefaults(nil),
		run:      egoGraph,
	},
	{
		Name:     "max_clique",
		Group:    "apx",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode},
		Defaults: withDefaults(nil),
		run:      maxClique,
	},
	{
		Name:     "independent_set",
		Group:    "apx",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode},
		Defaults: withDefaults(nil),
		run:      independentSet,
	},
	{
		Name:     "vertex_cover",
		Group:    "apx",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode},
		Defaults: withDefaults(nil),
		run:      vertexCover,
	},
	{
		Name:         "tsp",
		Group:        "apx",
		Kind:         NodeWise,
		Columns:      []ColumnSpec{{Name: "order", Type: Int64}, colNode},
		Defaults:     withDefaults(nil),
		Weighted:     true,
		EmptyIsError: true,
		run:          tsp,
	},
	{
		Name:     "pagerank",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "rank", Type: Float64}},
		Params:   []ParamSpec{pDamping, pIterations, pDirected},
		Defaults: withDefaults(nil),
		Weighted: true,
		run:      parPageRank,
	},
	{
		Name:     "bfs",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(nil),
		run:      parBFS,
	},
	{
		Name:     "shortest_paths",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "distance", Type: Float64}},
		Params:   []ParamSpec{{Name: "source", Type: ParamInt, Required: true}, pDirected},
		Defaults: withDefaults(nil),
		run:      parShortestPaths,
	},
	{
		Name:     "components",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "component", Type: Int64}},
		Defaults: withDefaults(nil),
		run:      parComponents,
	},
	{
		Name:     "clustering",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "coefficient", Type: Float64}},
		Defaults: withDefaults(nil),
		run:      parClustering,
	},
	{
		Name:     "triangles",
		Group:    "par",
		Kind:     NodeWise,
		Columns:  []ColumnSpec{colNode, {Name: "triangles", Type: Int64}},
		Defaults: withDefaults(nil),
		run:      parTriangles,
	},
	{
		Name:    "erdos_renyi",
		Group:   "gen",
		Kind:    Generator,
		Columns: []ColumnSpec{colSrc, colDst},
		Params: []ParamSpec{
			{Name: "n", Type: ParamInt, Positional: true},
			{Name: "p", Type: ParamFloat, Positional: true},
			pSeed,
		},
		Defaults: withDefaults(nil),
		run:      erdosRenyi,
	},
	{
		Name:    "barabasi_albert",
		Group:   "gen",
		Kind:    Generator,
		Columns: []ColumnSpec{colSrc, colDst},
		Params: []ParamSpec{
			{Name: "n", Type: ParamInt, Positional: true},
			{Name: "m", Type: ParamInt, Positional: true},
			pSeed,
		},
		Defaults: withDefaults(nil),
		run:      barabasiAlbert,
	},
	{
		Name:    "watts_strogatz",
		Group:   "gen",
		Kind:    Generator,
		Columns: []ColumnSpec{colSrc, colDst},
		Params: []ParamSpec{
			{Name: "n", Type: ParamInt, Positional: true},
			{Name: "k", Type: ParamInt, Positional: true},
			{Name: "beta", Type: ParamFloat, Positional: true},
			pSeed,
		},
		Defaults: withDefaults(nil),
		run:      wattsStrogatz,
	},
}

// Lookup finds an algorithm by SQL name or engine name. A bare engine name
// shared by several groups resolves to the first catalog entry, so the par
// variants are only reachable by their SQL names.
func Lookup(name string) (*Algorithm, error) {
	for _, a := range catalog {
		if a.SQLName() == name {
			return a, nil
		}
	}
	for _, a := range catalog {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
}

// Algorithms returns the catalog sorted by SQL name.
func Algorithms() []*Algorithm {
	out := slices.Clone(catalog)
	slices.SortFunc(out, func(a, b *Algorithm) int { return strings.Compare(a.SQLName(), b.SQLName()) })
	return out
}
