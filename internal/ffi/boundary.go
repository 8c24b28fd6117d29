// Package ffi is the call boundary between the table function layer and the
// graph engine. Calls never return Go errors or panic across it: failures
// become a negative sentinel (or NaN) and a message in the session's error
// slot.
package ffi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"onager/internal/engine"
	"onager/internal/errchan"
	"onager/internal/metrics"
	"onager/internal/registry"
)

// Version is reported by Version and the onager_version table function.
const Version = "0.1.0"

// ErrContractViolation marks a caller that broke the two-phase protocol, for
// example with buffers that do not match the algorithm's column layout.
var ErrContractViolation = errors.New("contract violation")

// Boundary is the call surface over the engine and a graph registry. Every
// entry point reports failure through a sentinel return value and the
// session's error slot.
type Boundary struct {
	reg     *registry.Registry
	slot    *errchan.Slot
	pool    *sync.Pool
	metrics *metrics.Metrics
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithMetrics counts boundary calls by phase on m. A nil m records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Boundary) { b.metrics = m }
}

// New creates a boundary over reg. A nil registry gets a fresh one.
func New(reg *registry.Registry, opts ...Option) *Boundary {
	if reg == nil {
		reg = registry.New()
	}
	b := &Boundary{
		reg:  reg,
		slot: &errchan.Slot{},
		pool: &sync.Pool{New: func() any {
			buf := make([]byte, 0, 256)
			return &buf
		}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session returns a boundary sharing the registry and allocator but with its
// own error slot, so concurrent callers never read each other's errors.
func (b *Boundary) Session() *Boundary {
	s := *b
	s.slot = &errchan.Slot{}
	return &s
}

// Registry returns the graph registry shared by every session.
func (b *Boundary) Registry() *registry.Registry { return b.reg }

// LastError returns the message left by the most recent failing call of this
// session. It is only meaningful right after a call returned its sentinel.
func (b *Boundary) LastError() (string, bool) { return b.slot.Last() }

// Err wraps the last error message for op as a Go error.
func (b *Boundary) Err(op string) error {
	return &CallError{Op: op, Message: b.slot.Message()}
}

// CallError is a failed boundary call seen from the Go side.
type CallError struct {
	Op      string
	Message string
}

func (e *CallError) Error() string { return e.Op + ": " + e.Message }

func (b *Boundary) fail(err error) { b.slot.SetErr(err) }

// guard turns a panic inside the engine into a failed call.
func (b *Boundary) guard(onPanic func()) {
	if r := recover(); r != nil {
		b.fail(fmt.Errorf("internal error: %v", r))
		onPanic()
	}
}

// =============================================================================
// Algorithm calls
// =============================================================================

// Compute is the two-phase entry point. With out == nil it negotiates and
// returns the row count N. With out set it fills the caller's columns, which
// must match the algorithm's column types and all have length N; on any
// mismatch nothing is written. Both calls recompute from scratch.
func (b *Boundary) Compute(name string, edges *engine.EdgeList, p engine.Params, out []engine.Column) (n int64) {
	phase := "negotiate"
	if out != nil {
		phase = "fill"
	}
	b.metrics.BoundaryCall(phase)
	defer b.guard(func() { n = errchan.Sentinel })

	a, err := engine.Lookup(name)
	if err != nil {
		b.fail(err)
		return errchan.Sentinel
	}
	if out != nil {
		if err := checkLayout(a, out); err != nil {
			b.fail(err)
			return errchan.Sentinel
		}
	}
	res, err := a.Run(edges, p)
	if err != nil {
		b.fail(err)
		return errchan.Sentinel
	}
	rows := res.Rows()
	if out == nil {
		return int64(rows)
	}
	for i, col := range out {
		if col.Len() != rows {
			b.fail(fmt.Errorf("%w: buffer %q has length %d, result has %d rows",
				ErrContractViolation, a.Columns[i].Name, col.Len(), rows))
			return errchan.Sentinel
		}
	}
	for i := range out {
		out[i].CopyFrom(res.Columns[i])
	}
	return int64(rows)
}

func checkLayout(a *engine.Algorithm, out []engine.Column) error {
	if len(out) != len(a.Columns) {
		return fmt.Errorf("%w: %s has %d columns, got %d buffers", ErrContractViolation, a.Name, len(a.Columns), len(out))
	}
	for i, col := range out {
		if col.Type != a.Columns[i].Type {
			return fmt.Errorf("%w: buffer %q must be %s, got %s", ErrContractViolation, a.Columns[i].Name, a.Columns[i].Type, col.Type)
		}
	}
	return nil
}

// Run computes once and hands the result to the caller. It returns nil on
// failure.
func (b *Boundary) Run(name string, edges *engine.EdgeList, p engine.Params) (res *engine.Result) {
	b.metrics.BoundaryCall("run")
	defer b.guard(func() { res = nil })

	a, err := engine.Lookup(name)
	if err != nil {
		b.fail(err)
		return nil
	}
	res, err = a.Run(edges, p)
	if err != nil {
		b.fail(err)
		return nil
	}
	return res
}

// ComputeScalar runs a scalar algorithm without negotiation. It returns NaN
// on failure.
func (b *Boundary) ComputeScalar(name string, edges *engine.EdgeList, p engine.Params) (v float64) {
	b.metrics.BoundaryCall("scalar")
	defer b.guard(func() { v = errchan.NaN() })

	a, err := engine.Lookup(name)
	if err != nil {
		b.fail(err)
		return errchan.NaN()
	}
	v, err = a.Scalar(edges, p)
	if err != nil {
		b.fail(err)
		return errchan.NaN()
	}
	return v
}

// =============================================================================
// Registry calls
// =============================================================================

func (b *Boundary) checkName(name string) bool {
	switch {
	case name == "":
		b.fail(fmt.Errorf("%w: empty name", registry.ErrInvalidName))
		return false
	case !utf8.ValidString(name):
		b.fail(fmt.Errorf("%w: name is not valid UTF-8", registry.ErrInvalidName))
		return false
	}
	return true
}

func (b *Boundary) status(err error) int32 {
	if err != nil {
		b.fail(err)
		return errchan.StatusFailed
	}
	return errchan.StatusOK
}

func (b *Boundary) count(v int64, err error) int64 {
	if err != nil {
		b.fail(err)
		return errchan.Sentinel
	}
	return v
}

func (b *Boundary) CreateGraph(name string, directed bool) int32 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.StatusFailed
	}
	st := b.status(b.reg.Create(name, directed))
	b.metrics.SetGraphs(b.reg.Len())
	return st
}

func (b *Boundary) DropGraph(name string) int32 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.StatusFailed
	}
	st := b.status(b.reg.Drop(name))
	b.metrics.SetGraphs(b.reg.Len())
	return st
}

func (b *Boundary) AddNode(name string, id int64) int32 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.StatusFailed
	}
	return b.status(b.reg.AddNode(name, id))
}

func (b *Boundary) AddEdge(name string, src, dst int64, weight float64) int32 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.StatusFailed
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		b.fail(fmt.Errorf("%w: edge weight must be finite", engine.ErrInvalidParameter))
		return errchan.StatusFailed
	}
	return b.status(b.reg.AddEdge(name, src, dst, weight))
}

func (b *Boundary) NodeCount(name string) int64 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.Sentinel
	}
	return b.count(b.reg.NodeCount(name))
}

func (b *Boundary) EdgeCount(name string) int64 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.Sentinel
	}
	return b.count(b.reg.EdgeCount(name))
}

func (b *Boundary) NodeInDegree(name string, id int64) int64 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.Sentinel
	}
	return b.count(b.reg.InDegree(name, id))
}

func (b *Boundary) NodeOutDegree(name string, id int64) int64 {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return errchan.Sentinel
	}
	return b.count(b.reg.OutDegree(name, id))
}

// GraphEdges copies a named graph's edges out of the registry. It returns
// nil on failure.
func (b *Boundary) GraphEdges(name string) (*engine.EdgeList, bool) {
	b.metrics.BoundaryCall("registry")
	if !b.checkName(name) {
		return nil, false
	}
	e, directed, err := b.reg.Edges(name)
	if err != nil {
		b.fail(err)
		return nil, false
	}
	return e, directed
}

// ListGraphs returns a JSON array of graph summaries in creation order.
func (b *Boundary) ListGraphs() *OwnedString {
	b.metrics.BoundaryCall("registry")
	data, err := json.Marshal(b.reg.List())
	if err != nil {
		b.fail(err)
		return nil
	}
	return b.own(data)
}

// Version returns the extension version as an owned string.
func (b *Boundary) Version() *OwnedString {
	return b.own([]byte(Version))
}
