package ffi

import (
	"fmt"

	"onager/internal/engine"
	"onager/internal/errchan"
)

// Invoker drives one algorithm call through a boundary session.
type Invoker interface {
	Invoke(b *Boundary, name string, edges *engine.EdgeList, p engine.Params) (*engine.Result, error)
}

const (
	ModeTwoPhase    = "two_phase"
	ModeComputeOnce = "compute_once"
)

// InvokerFor maps a configured invocation mode to its invoker.
func InvokerFor(mode string) (Invoker, error) {
	switch mode {
	case "", ModeComputeOnce:
		return ComputeOnce{}, nil
	case ModeTwoPhase:
		return TwoPhase{}, nil
	default:
		return nil, fmt.Errorf("unknown invocation mode %q", mode)
	}
}

// invokeScalar takes the single-value entry point; scalar algorithms never
// negotiate a row count.
func invokeScalar(b *Boundary, name string, a *engine.Algorithm, edges *engine.EdgeList, p engine.Params) (*engine.Result, error) {
	v := b.ComputeScalar(name, edges, p)
	if errchan.IsFailure(v) {
		return nil, b.Err(name)
	}
	return a.ScalarResult(v), nil
}

// TwoPhase negotiates the row count, allocates the columns and fills them.
// Scalar algorithms go through ComputeScalar instead.
type TwoPhase struct{}

func (TwoPhase) Invoke(b *Boundary, name string, edges *engine.EdgeList, p engine.Params) (*engine.Result, error) {
	a, err := engine.Lookup(name)
	if err != nil {
		return nil, err
	}
	if a.Kind == engine.Scalar {
		return invokeScalar(b, name, a, edges, p)
	}
	n := b.Compute(name, edges, p, nil)
	if n < 0 {
		return nil, b.Err(name)
	}
	out := make([]engine.Column, len(a.Columns))
	for i, c := range a.Columns {
		out[i] = engine.NewColumn(c.Type, int(n))
	}
	got := b.Compute(name, edges, p, out)
	if got < 0 {
		return nil, b.Err(name)
	}
	if got != n {
		return nil, fmt.Errorf("%s: %w: fill returned %d rows, negotiated %d", name, ErrContractViolation, got, n)
	}
	return &engine.Result{Columns: out}, nil
}

// ComputeOnce asks the boundary for an owned result in a single call.
// Scalar algorithms go through ComputeScalar instead.
type ComputeOnce struct{}

func (ComputeOnce) Invoke(b *Boundary, name string, edges *engine.EdgeList, p engine.Params) (*engine.Result, error) {
	a, err := engine.Lookup(name)
	if err != nil {
		return nil, err
	}
	if a.Kind == engine.Scalar {
		return invokeScalar(b, name, a, edges, p)
	}
	res := b.Run(name, edges, p)
	if res == nil {
		return nil, b.Err(name)
	}
	return res, nil
}
