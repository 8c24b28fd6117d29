package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"onager/internal/adapter"
	"onager/internal/engine"
	"onager/internal/registry"
)

// =============================================================================
// ALGORITHM TABLE FUNCTIONS
// =============================================================================

// algorithmSource feeds one adapter from an edge query and emits its chunks
// row by row. DuckDB drives a row source from a single thread.
type algorithmSource struct {
	ext     *Extension
	fn      *engine.Algorithm
	params  engine.Params
	shape   edgeShape
	columns []duckdb.ColumnInfo

	adapter *adapter.Adapter
	loaded  bool
	chunk   adapter.Chunk
	row     int
	done    bool
}

func (s *algorithmSource) ColumnInfos() []duckdb.ColumnInfo { return s.columns }

func (s *algorithmSource) Cardinality() *duckdb.CardinalityInfo {
	if s.fn.Kind == engine.Scalar {
		return &duckdb.CardinalityInfo{Cardinality: 1, Exact: true}
	}
	return nil
}

func (s *algorithmSource) Init() {
	s.adapter = s.ext.newAdapter(s.fn, s.params)
}

// load streams the edge query into the adapter and closes its input.
func (s *algorithmSource) load() error {
	if s.fn.Kind == engine.Generator {
		return nil
	}
	ctx, cancel := s.ext.client.Context(context.Background())
	defer cancel()
	n, err := streamEdges(ctx, s.ext.client, s.shape, s.ext.chunkSize, func(src, dst []int64, w []float64) error {
		_, err := s.adapter.Append(src, dst, w)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", s.fn.SQLName(), err)
	}
	s.ext.log.Debug("edge input collected", zap.String("query_id", s.adapter.ID()), zap.Int("edges", n))
	return s.adapter.CloseInput()
}

func (s *algorithmSource) FillRow(row duckdb.Row) (bool, error) {
	if !s.loaded {
		s.loaded = true
		if err := s.load(); err != nil {
			return false, err
		}
	}
	for s.row >= s.chunk.Rows() {
		if s.done {
			return false, nil
		}
		chunk, sig, err := s.adapter.Pull()
		if err != nil {
			return false, err
		}
		s.chunk, s.row, s.done = chunk, 0, sig == adapter.Finished
	}
	for i, col := range s.chunk.Columns {
		if err := row.SetRowValue(i, col.Value(s.row)); err != nil {
			return false, err
		}
	}
	s.row++
	return true, nil
}

func duckType(t engine.ColumnType) duckdb.Type {
	if t == engine.Int64 {
		return duckdb.TYPE_BIGINT
	}
	return duckdb.TYPE_DOUBLE
}

func columnInfos(specs []engine.ColumnSpec) ([]duckdb.ColumnInfo, error) {
	cols := make([]duckdb.ColumnInfo, len(specs))
	for i, c := range specs {
		info, err := duckdb.NewTypeInfo(duckType(c.Type))
		if err != nil {
			return nil, err
		}
		cols[i] = duckdb.ColumnInfo{Name: c.Name, T: info}
	}
	return cols, nil
}

// algorithmFunction declares fn's raw signature: the edge query (except for
// generators) and the option string, both VARCHAR. Typed and named arguments
// are handled by the macro in front of it.
func (x *Extension) algorithmFunction(fn *engine.Algorithm) (duckdb.RowTableFunction, error) {
	cols, err := columnInfos(fn.Columns)
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	nargs := 2
	if fn.Kind == engine.Generator {
		nargs = 1
	}
	args, err := varcharArgs(nargs)
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	return duckdb.RowTableFunction{
		Config: duckdb.TableFunctionConfig{Arguments: args},
		BindArguments: func(_ map[string]any, values ...any) (duckdb.RowTableSource, error) {
			strs := make([]string, len(values))
			for i, v := range values {
				strs[i], _ = v.(string)
			}
			return x.bindAlgorithm(fn, cols, strs)
		},
	}, nil
}

func varcharArgs(n int) ([]duckdb.TypeInfo, error) {
	args := make([]duckdb.TypeInfo, n)
	for i := range args {
		info, err := duckdb.NewTypeInfo(duckdb.TYPE_VARCHAR)
		if err != nil {
			return nil, err
		}
		args[i] = info
	}
	return args, nil
}

// bindAlgorithm validates arguments and the edge query shape. No engine call
// happens here. args holds the edge query (unless fn is a generator) followed
// by the option string.
func (x *Extension) bindAlgorithm(fn *engine.Algorithm, cols []duckdb.ColumnInfo, args []string) (duckdb.RowTableSource, error) {
	src := &algorithmSource{ext: x, fn: fn, columns: cols}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing arguments", fn.SQLName())
	}
	if fn.Kind != engine.Generator {
		if x.inTransaction() {
			return nil, fmt.Errorf("%s: %w", fn.SQLName(), ErrOpenTransaction)
		}
		ctx, cancel := x.client.Context(context.Background())
		defer cancel()
		shape, err := describeEdgeQuery(ctx, x.client, args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.SQLName(), err)
		}
		src.shape = shape
		args = args[1:]
	}
	options := ""
	if len(args) > 0 {
		options = args[0]
	}
	positional, named, err := adapter.DecodeOptions(fn, options)
	if err != nil {
		return nil, err
	}
	p, err := adapter.BindParams(fn, positional, named)
	if err != nil {
		return nil, err
	}
	src.params = p
	return src, nil
}

// =============================================================================
// STATIC TABLE FUNCTIONS
// =============================================================================

// staticSource emits rows computed at bind time.
type staticSource struct {
	columns []duckdb.ColumnInfo
	rows    [][]any
	next    int
}

func (s *staticSource) ColumnInfos() []duckdb.ColumnInfo { return s.columns }

func (s *staticSource) Cardinality() *duckdb.CardinalityInfo {
	return &duckdb.CardinalityInfo{Cardinality: uint(len(s.rows)), Exact: true}
}

func (s *staticSource) Init() {}

func (s *staticSource) FillRow(row duckdb.Row) (bool, error) {
	if s.next >= len(s.rows) {
		return false, nil
	}
	for i, v := range s.rows[s.next] {
		if err := row.SetRowValue(i, v); err != nil {
			return false, err
		}
	}
	s.next++
	return true, nil
}

type columnDef struct {
	name string
	t    duckdb.Type
}

func staticColumns(defs ...columnDef) ([]duckdb.ColumnInfo, error) {
	cols := make([]duckdb.ColumnInfo, len(defs))
	for i, d := range defs {
		info, err := duckdb.NewTypeInfo(d.t)
		if err != nil {
			return nil, err
		}
		cols[i] = duckdb.ColumnInfo{Name: d.name, T: info}
	}
	return cols, nil
}

func (x *Extension) listGraphsFunction() (duckdb.RowTableFunction, error) {
	cols, err := staticColumns(
		columnDef{"name", duckdb.TYPE_VARCHAR},
		columnDef{"directed", duckdb.TYPE_BOOLEAN},
		columnDef{"node_count", duckdb.TYPE_BIGINT},
		columnDef{"edge_count", duckdb.TYPE_BIGINT},
	)
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	return duckdb.RowTableFunction{
		BindArguments: func(map[string]any, ...any) (duckdb.RowTableSource, error) {
			session := x.boundary.Session()
			owned := session.ListGraphs()
			if owned == nil {
				return nil, session.Err("onager_list_graphs")
			}
			defer owned.Release()

			var infos []registry.Info
			if err := json.Unmarshal([]byte(owned.String()), &infos); err != nil {
				return nil, fmt.Errorf("onager_list_graphs: %w", err)
			}
			src := &staticSource{columns: cols}
			for _, info := range infos {
				src.rows = append(src.rows, []any{info.Name, info.Directed, info.Nodes, info.Edges})
			}
			return src, nil
		},
	}, nil
}

func (x *Extension) versionFunction() (duckdb.RowTableFunction, error) {
	cols, err := staticColumns(columnDef{"version", duckdb.TYPE_VARCHAR})
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	return duckdb.RowTableFunction{
		BindArguments: func(map[string]any, ...any) (duckdb.RowTableSource, error) {
			owned := x.boundary.Version()
			defer owned.Release()
			return &staticSource{columns: cols, rows: [][]any{{owned.String()}}}, nil
		},
	}, nil
}

func (x *Extension) graphEdgesFunction() (duckdb.RowTableFunction, error) {
	cols, err := staticColumns(
		columnDef{"src", duckdb.TYPE_BIGINT},
		columnDef{"dst", duckdb.TYPE_BIGINT},
		columnDef{"weight", duckdb.TYPE_DOUBLE},
	)
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	args, err := varcharArgs(1)
	if err != nil {
		return duckdb.RowTableFunction{}, err
	}
	return duckdb.RowTableFunction{
		Config: duckdb.TableFunctionConfig{Arguments: args},
		BindArguments: func(_ map[string]any, args ...any) (duckdb.RowTableSource, error) {
			name, _ := args[0].(string)
			session := x.boundary.Session()
			e, _ := session.GraphEdges(name)
			if e == nil {
				return nil, session.Err("onager_graph_edges")
			}
			src := &staticSource{columns: cols, rows: make([][]any, e.Len())}
			for i := range e.Src {
				src.rows[i] = []any{e.Src[i], e.Dst[i], e.Weight(i)}
			}
			return src, nil
		},
	}, nil
}

// registerTables installs the raw table functions behind the public macros.
func (x *Extension) registerTables(conn *sql.Conn) error {
	for _, fn := range engine.Algorithms() {
		tf, err := x.algorithmFunction(fn)
		if err != nil {
			return fmt.Errorf("%s: %w", fn.SQLName(), err)
		}
		if err := duckdb.RegisterTableUDF(conn, internalName(fn.SQLName()), tf); err != nil {
			return fmt.Errorf("registering %s: %w", fn.SQLName(), err)
		}
	}

	static := []struct {
		name  string
		build func() (duckdb.RowTableFunction, error)
	}{
		{"onager_list_graphs", x.listGraphsFunction},
		{"onager_version", x.versionFunction},
		{"onager_graph_edges", x.graphEdgesFunction},
	}
	for _, s := range static {
		tf, err := s.build()
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := duckdb.RegisterTableUDF(conn, internalName(s.name), tf); err != nil {
			return fmt.Errorf("registering %s: %w", s.name, err)
		}
	}
	return nil
}
