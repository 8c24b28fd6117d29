// Package adapter drives one table function invocation: it collects the
// streamed edge input, computes once, and pages the result out in host
// sized chunks.
package adapter

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onager/internal/engine"
	"onager/internal/ffi"
	"onager/internal/metrics"
)

// DefaultChunkSize is DuckDB's standard vector size.
const DefaultChunkSize = 2048

var (
	ErrConcurrentUse = errors.New("adapter is already in use by another caller")
	ErrWrongState    = errors.New("operation not allowed in current state")
)

type State int

const (
	Collecting State = iota
	Computing
	Emitting
	Done
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Computing:
		return "computing"
	case Emitting:
		return "emitting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Signal tells the host what the adapter expects next.
type Signal int

const (
	NeedMoreInput Signal = iota
	HaveMoreOutput
	Finished
)

func (s Signal) String() string {
	switch s {
	case NeedMoreInput:
		return "need_more_input"
	case HaveMoreOutput:
		return "have_more_output"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// Chunk is a window of result rows. Its columns share storage with the
// adapter's result and stay valid until the adapter is discarded.
type Chunk struct {
	Columns []engine.Column
}

func (c Chunk) Rows() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return c.Columns[0].Len()
}

type Adapter struct {
	id        string
	fn        *engine.Algorithm
	params    engine.Params
	session   *ffi.Boundary
	invoker   ffi.Invoker
	chunkSize int
	log       *zap.Logger
	metrics   *metrics.Metrics

	busy   atomic.Bool
	state  State
	edges  engine.EdgeList
	result *engine.Result
	cursor int
}

type Option func(*Adapter)

func WithChunkSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

func WithInvoker(inv ffi.Invoker) Option {
	return func(a *Adapter) {
		if inv != nil {
			a.invoker = inv
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New prepares an invocation of fn. The adapter takes its own boundary
// session from b. Generators start in Computing since they take no input.
func New(b *ffi.Boundary, fn *engine.Algorithm, p engine.Params, opts ...Option) *Adapter {
	a := &Adapter{
		id:        uuid.NewString(),
		fn:        fn,
		params:    p,
		session:   b.Session(),
		invoker:   ffi.ComputeOnce{},
		chunkSize: DefaultChunkSize,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("query_id", a.id), zap.String("function", fn.SQLName()))
	if fn.Kind == engine.Generator {
		a.state = Computing
	}
	return a
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Function() *engine.Algorithm { return a.fn }

// State is only meaningful from the goroutine driving the adapter.
func (a *Adapter) State() State { return a.state }

func (a *Adapter) acquire() bool { return a.busy.CompareAndSwap(false, true) }

func (a *Adapter) release() { a.busy.Store(false) }

func (a *Adapter) transition(to State) {
	a.log.Debug("state transition", zap.Stringer("from", a.state), zap.Stringer("to", to))
	a.state = to
}

// Append adds a batch of input edges. weights may be nil.
func (a *Adapter) Append(src, dst []int64, weights []float64) (Signal, error) {
	if !a.acquire() {
		return 0, ErrConcurrentUse
	}
	defer a.release()

	if a.state != Collecting {
		return 0, fmt.Errorf("%w: append in %s", ErrWrongState, a.state)
	}
	if !a.fn.Weighted {
		weights = nil
	}
	if err := a.edges.Append(src, dst, weights); err != nil {
		return 0, err
	}
	return NeedMoreInput, nil
}

// CloseInput marks the end of the edge stream.
func (a *Adapter) CloseInput() error {
	if !a.acquire() {
		return ErrConcurrentUse
	}
	defer a.release()

	switch a.state {
	case Collecting:
		a.transition(Computing)
		return nil
	case Computing:
		return nil
	default:
		return fmt.Errorf("%w: close input in %s", ErrWrongState, a.state)
	}
}

// Pull returns the next chunk of output. The first pull after the input is
// closed runs the computation. An empty chunk with Finished ends the stream.
func (a *Adapter) Pull() (Chunk, Signal, error) {
	if !a.acquire() {
		return Chunk{}, 0, ErrConcurrentUse
	}
	defer a.release()

	switch a.state {
	case Collecting:
		return Chunk{}, NeedMoreInput, nil
	case Computing:
		if err := a.compute(); err != nil {
			return Chunk{}, Finished, err
		}
		if a.state == Done {
			return Chunk{}, Finished, nil
		}
		return a.emit()
	case Emitting:
		return a.emit()
	default:
		return Chunk{}, Finished, nil
	}
}

func (a *Adapter) compute() error {
	name := a.fn.SQLName()
	if a.edges.Len() == 0 && a.fn.Kind != engine.Generator && !a.fn.EmptyIsError {
		a.log.Debug("empty input, skipping computation")
		a.metrics.Invocation(name, metrics.OutcomeEmpty)
		a.transition(Done)
		return nil
	}

	start := time.Now()
	res, err := a.invoker.Invoke(a.session, name, &a.edges, a.params)
	elapsed := time.Since(start)
	a.metrics.Compute(name, elapsed, a.edges.Len())
	if err != nil {
		a.log.Warn("computation failed", zap.Int("edges", a.edges.Len()), zap.Error(err))
		a.metrics.Invocation(name, metrics.OutcomeError)
		a.transition(Done)
		return err
	}

	a.log.Info("computation finished",
		zap.Int("edges", a.edges.Len()),
		zap.Int("rows", res.Rows()),
		zap.Duration("duration", elapsed))
	a.metrics.Invocation(name, metrics.OutcomeOK)
	a.result = res
	a.edges = engine.EdgeList{}
	a.transition(Emitting)
	return nil
}

func (a *Adapter) emit() (Chunk, Signal, error) {
	rows := a.result.Rows()
	hi := min(a.cursor+a.chunkSize, rows)
	chunk := Chunk{Columns: make([]engine.Column, len(a.result.Columns))}
	for i, col := range a.result.Columns {
		chunk.Columns[i] = col.Slice(a.cursor, hi)
	}
	a.cursor = hi
	a.metrics.Emitted(a.fn.SQLName(), chunk.Rows())
	if a.cursor >= rows {
		a.transition(Done)
		return chunk, Finished, nil
	}
	return chunk, HaveMoreOutput, nil
}
