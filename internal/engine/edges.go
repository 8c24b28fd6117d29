package engine

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrEmptyGraph       = errors.New("cannot compute on empty graph")
	ErrNodeNotFound     = errors.New("node not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDisconnected     = errors.New("graph is not connected")
	ErrNegativeWeight   = errors.New("negative edge weight")
	ErrEdgeShape        = errors.New("edge arrays have different lengths")
	ErrNegativeCycle    = errors.New("graph contains a negative cycle")
	ErrUndefined        = errors.New("value is undefined for this graph")
	ErrTooLarge         = errors.New("graph is too large for this algorithm")
)

// EdgeList is the columnar edge input of every non-generator algorithm.
// Weights is nil for unweighted input, in which case every edge weighs 1.
type EdgeList struct {
	Src     []int64
	Dst     []int64
	Weights []float64
}

func (e *EdgeList) Len() int { return len(e.Src) }

func (e *EdgeList) Weighted() bool { return e.Weights != nil }

func (e *EdgeList) Weight(i int) float64 {
	if e.Weights == nil {
		return 1
	}
	return e.Weights[i]
}

// Validate checks that the columns line up.
func (e *EdgeList) Validate() error {
	if len(e.Src) != len(e.Dst) {
		return fmt.Errorf("%w: src=%d dst=%d", ErrEdgeShape, len(e.Src), len(e.Dst))
	}
	if e.Weights != nil && len(e.Weights) != len(e.Src) {
		return fmt.Errorf("%w: src=%d weight=%d", ErrEdgeShape, len(e.Src), len(e.Weights))
	}
	return nil
}

// Append adds a batch of edges. A batch without weights appended to a
// weighted list gets weight 1 for its edges, and the other way round.
func (e *EdgeList) Append(src, dst []int64, weights []float64) error {
	if len(src) != len(dst) || (weights != nil && len(weights) != len(src)) {
		return fmt.Errorf("%w: src=%d dst=%d weight=%d", ErrEdgeShape, len(src), len(dst), len(weights))
	}
	if weights != nil && e.Weights == nil {
		e.Weights = make([]float64, len(e.Src), len(e.Src)+len(weights))
		for i := range e.Weights {
			e.Weights[i] = 1
		}
	}
	e.Src = append(e.Src, src...)
	e.Dst = append(e.Dst, dst...)
	if e.Weights != nil {
		if weights == nil {
			for range src {
				e.Weights = append(e.Weights, 1)
			}
		} else {
			e.Weights = append(e.Weights, weights...)
		}
	}
	return nil
}

// Reset empties the list while keeping its capacity.
func (e *EdgeList) Reset() {
	e.Src = e.Src[:0]
	e.Dst = e.Dst[:0]
	e.Weights = nil
}

// =============================================================================
// Result columns
// =============================================================================

type ColumnType int

const (
	Int64 ColumnType = iota
	Float64
)

func (t ColumnType) String() string {
	switch t {
	case Int64:
		return "BIGINT"
	case Float64:
		return "DOUBLE"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

type ColumnSpec struct {
	Name string
	Type ColumnType
}

// Column is one typed result array. Exactly one of Ints or Floats is used,
// selected by Type.
type Column struct {
	Type   ColumnType
	Ints   []int64
	Floats []float64
}

// NewColumn allocates a column of length n.
func NewColumn(t ColumnType, n int) Column {
	if t == Int64 {
		return Column{Type: t, Ints: make([]int64, n)}
	}
	return Column{Type: t, Floats: make([]float64, n)}
}

func IntColumn(v []int64) Column     { return Column{Type: Int64, Ints: v} }
func FloatColumn(v []float64) Column { return Column{Type: Float64, Floats: v} }

func (c Column) Len() int {
	if c.Type == Int64 {
		return len(c.Ints)
	}
	return len(c.Floats)
}

// Value returns row i boxed for the host.
func (c Column) Value(i int) any {
	if c.Type == Int64 {
		return c.Ints[i]
	}
	return c.Floats[i]
}

// Slice returns rows [lo, hi) sharing storage with c.
func (c Column) Slice(lo, hi int) Column {
	if c.Type == Int64 {
		return Column{Type: c.Type, Ints: c.Ints[lo:hi]}
	}
	return Column{Type: c.Type, Floats: c.Floats[lo:hi]}
}

// CopyFrom copies src into c. Both columns must have the same type and length.
func (c Column) CopyFrom(src Column) {
	if c.Type == Int64 {
		copy(c.Ints, src.Ints)
		return
	}
	copy(c.Floats, src.Floats)
}

// Result is a set of equally long columns in catalog order.
type Result struct {
	Columns []Column
}

// Rows is the common column length; a result without columns has no rows.
func (r *Result) Rows() int {
	if r == nil || len(r.Columns) == 0 {
		return 0
	}
	return r.Columns[0].Len()
}

// =============================================================================
// Parameters
// =============================================================================

// Params is the union of every algorithm's named parameters. Each algorithm
// reads the fields it documents in the catalog; the rest are ignored.
type Params struct {
	Directed   bool
	Normalized bool
	Damping    float64 `validate:"gte=0,lte=1"`
	Iterations int     `validate:"gte=0"`
	MaxIter    int     `validate:"gte=0"`
	Seed       uint64
	Source     int64
	K          int     `validate:"gte=0"`
	Radius     int     `validate:"gte=0"`
	N          int     `validate:"gte=0"`
	M          int     `validate:"gte=0"`
	P          float64 `validate:"gte=0,lte=1"`
	Beta       float64 `validate:"gte=0,lte=1"`
	// Alpha is the Katz attenuation factor.
	Alpha       float64 `validate:"gte=0"`
	Tolerance   float64 `validate:"gt=0"`
	Seeds       int     `validate:"gte=0"`
	Communities int     `validate:"gte=1"`
}

// DefaultParams returns the defaults shared by the catalog.
func DefaultParams() Params {
	return Params{
		Directed:    true,
		Normalized:  true,
		Damping:     0.85,
		Iterations:  100,
		MaxIter:     100,
		Seed:        42,
		K:           1,
		Radius:      1,
		Alpha:       0.1,
		Tolerance:   1e-6,
		Seeds:       10,
		Communities: 2,
	}
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, name)
	}
	return nil
}
