package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"onager/internal/adapter"
	"onager/internal/engine"
	"onager/internal/ffi"
	"onager/internal/metrics"
)

// Extension registers the graph functions on DuckDB connections.
type Extension struct {
	client   *DuckDBClient
	boundary *ffi.Boundary
	// scalars is the session shared by the registry scalar functions.
	scalars   *ffi.Boundary
	log       *zap.Logger
	metrics   *metrics.Metrics
	chunkSize int
	invoker   ffi.Invoker
	// inTx is set while the owning session has an explicit transaction open.
	inTx atomic.Bool
}

type ExtensionOption func(*Extension)

func WithLogger(l *zap.Logger) ExtensionOption {
	return func(x *Extension) {
		if l != nil {
			x.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) ExtensionOption {
	return func(x *Extension) { x.metrics = m }
}

func WithChunkSize(n int) ExtensionOption {
	return func(x *Extension) {
		if n > 0 {
			x.chunkSize = n
		}
	}
}

func WithInvoker(inv ffi.Invoker) ExtensionOption {
	return func(x *Extension) {
		if inv != nil {
			x.invoker = inv
		}
	}
}

func NewExtension(client *DuckDBClient, b *ffi.Boundary, opts ...ExtensionOption) *Extension {
	x := &Extension{
		client:    client,
		boundary:  b,
		log:       zap.NewNop(),
		chunkSize: adapter.DefaultChunkSize,
		invoker:   ffi.ComputeOnce{},
	}
	for _, opt := range opts {
		opt(x)
	}
	x.scalars = b.Session()
	return x
}

func (x *Extension) Boundary() *ffi.Boundary { return x.boundary }

func (x *Extension) inTransaction() bool { return x.inTx.Load() }

func (x *Extension) setTransaction(open bool) { x.inTx.Store(open) }

func (x *Extension) newAdapter(fn *engine.Algorithm, p engine.Params) *adapter.Adapter {
	return adapter.New(x.boundary, fn, p,
		adapter.WithChunkSize(x.chunkSize),
		adapter.WithInvoker(x.invoker),
		adapter.WithLogger(x.log),
		adapter.WithMetrics(x.metrics),
	)
}

// Register installs every scalar and table function on conn.
func (x *Extension) Register(ctx context.Context, conn *sql.Conn) error {
	if err := x.registerScalars(conn); err != nil {
		return err
	}
	if err := x.registerTables(conn); err != nil {
		return err
	}
	x.log.Info("functions registered",
		zap.Int("scalar", len(registryScalars)),
		zap.Int("table", len(engine.Algorithms())+3))
	return ctx.Err()
}

// FunctionInfo describes one SQL function for listings.
type FunctionInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
}

// Functions lists every SQL function the extension registers.
func Functions() []FunctionInfo {
	var out []FunctionInfo
	for _, def := range registryScalars {
		out = append(out, FunctionInfo{
			Name:      def.name,
			Kind:      "registry",
			Signature: scalarSignature(def),
		})
	}
	for _, fn := range engine.Algorithms() {
		out = append(out, FunctionInfo{Name: fn.SQLName(), Kind: fn.Kind.String(), Signature: fn.Signature()})
	}
	out = append(out,
		FunctionInfo{Name: "onager_list_graphs", Kind: "table", Signature: "onager_list_graphs() -> (name VARCHAR, directed BOOLEAN, node_count BIGINT, edge_count BIGINT)"},
		FunctionInfo{Name: "onager_version", Kind: "table", Signature: "onager_version() -> (version VARCHAR)"},
		FunctionInfo{Name: "onager_graph_edges", Kind: "table", Signature: "onager_graph_edges(name VARCHAR) -> (src BIGINT, dst BIGINT, weight DOUBLE)"},
	)
	return out
}

func typeName(t duckdb.Type) string {
	switch t {
	case duckdb.TYPE_VARCHAR:
		return "VARCHAR"
	case duckdb.TYPE_BOOLEAN:
		return "BOOLEAN"
	case duckdb.TYPE_INTEGER:
		return "INTEGER"
	case duckdb.TYPE_BIGINT:
		return "BIGINT"
	case duckdb.TYPE_DOUBLE:
		return "DOUBLE"
	default:
		return fmt.Sprintf("TYPE(%d)", t)
	}
}

func scalarSignature(def scalarDef) string {
	args := ""
	for i, t := range def.inputs {
		if i > 0 {
			args += ", "
		}
		args += typeName(t)
	}
	return fmt.Sprintf("%s(%s) -> %s", def.name, args, typeName(def.result))
}
