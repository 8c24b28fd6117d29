package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"onager/internal/errchan"
	"onager/internal/ffi"
)

// scalarUDF adapts a row function to duckdb.ScalarFunc.
type scalarUDF struct {
	config duckdb.ScalarFuncConfig
	exec   func(args []driver.Value) (any, error)
}

func (f *scalarUDF) Config() duckdb.ScalarFuncConfig { return f.config }

func (f *scalarUDF) Executor() duckdb.ScalarFuncExecutor {
	return duckdb.ScalarFuncExecutor{RowExecutor: f.exec}
}

func typeInfos(types ...duckdb.Type) ([]duckdb.TypeInfo, error) {
	infos := make([]duckdb.TypeInfo, len(types))
	for i, t := range types {
		info, err := duckdb.NewTypeInfo(t)
		if err != nil {
			return nil, fmt.Errorf("type info: %w", err)
		}
		infos[i] = info
	}
	return infos, nil
}

// newScalarUDF builds a volatile scalar function; registry calls mutate
// state, so the optimizer must not fold or reuse them.
func newScalarUDF(result duckdb.Type, inputs []duckdb.Type, exec func([]driver.Value) (any, error)) (*scalarUDF, error) {
	in, err := typeInfos(inputs...)
	if err != nil {
		return nil, err
	}
	out, err := typeInfos(result)
	if err != nil {
		return nil, err
	}
	return &scalarUDF{
		config: duckdb.ScalarFuncConfig{
			InputTypeInfos: in,
			ResultTypeInfo: out[0],
			Volatile:       true,
		},
		exec: exec,
	}, nil
}

type scalarDef struct {
	name   string
	result duckdb.Type
	inputs []duckdb.Type
	call   func(b *ffi.Boundary, args []driver.Value) any
}

// registryScalars are the registry entry points. They return status codes or
// counts and never raise; the error slot keeps the reason and
// onager_last_error reads it back (NULL until a call has failed).
var registryScalars = []scalarDef{
	{
		name:   "onager_create_graph",
		result: duckdb.TYPE_INTEGER,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR, duckdb.TYPE_BOOLEAN},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.CreateGraph(args[0].(string), args[1].(bool))
		},
	},
	{
		name:   "onager_drop_graph",
		result: duckdb.TYPE_INTEGER,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.DropGraph(args[0].(string))
		},
	},
	{
		name:   "onager_add_node",
		result: duckdb.TYPE_INTEGER,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR, duckdb.TYPE_BIGINT},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.AddNode(args[0].(string), args[1].(int64))
		},
	},
	{
		name:   "onager_add_edge",
		result: duckdb.TYPE_INTEGER,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR, duckdb.TYPE_BIGINT, duckdb.TYPE_BIGINT, duckdb.TYPE_DOUBLE},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.AddEdge(args[0].(string), args[1].(int64), args[2].(int64), args[3].(float64))
		},
	},
	{
		name:   "onager_node_count",
		result: duckdb.TYPE_BIGINT,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.NodeCount(args[0].(string))
		},
	},
	{
		name:   "onager_edge_count",
		result: duckdb.TYPE_BIGINT,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.EdgeCount(args[0].(string))
		},
	},
	{
		name:   "onager_node_in_degree",
		result: duckdb.TYPE_BIGINT,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR, duckdb.TYPE_BIGINT},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.NodeInDegree(args[0].(string), args[1].(int64))
		},
	},
	{
		name:   "onager_node_out_degree",
		result: duckdb.TYPE_BIGINT,
		inputs: []duckdb.Type{duckdb.TYPE_VARCHAR, duckdb.TYPE_BIGINT},
		call: func(b *ffi.Boundary, args []driver.Value) any {
			return b.NodeOutDegree(args[0].(string), args[1].(int64))
		},
	},
	{
		name:   "onager_last_error",
		result: duckdb.TYPE_VARCHAR,
		call: func(b *ffi.Boundary, _ []driver.Value) any {
			if msg, ok := b.LastError(); ok {
				return msg
			}
			return nil
		},
	},
}

func isFailure(v any) bool {
	switch x := v.(type) {
	case int32:
		return x == errchan.StatusFailed
	case int64:
		return x == errchan.Sentinel
	}
	return false
}

func (x *Extension) registerScalars(conn *sql.Conn) error {
	for _, def := range registryScalars {
		udf, err := newScalarUDF(def.result, def.inputs, func(args []driver.Value) (any, error) {
			v := def.call(x.scalars, args)
			if isFailure(v) {
				x.log.Debug("registry call failed", zap.String("function", def.name), zap.String("error", x.scalars.Err(def.name).Error()))
			}
			return v, nil
		})
		if err != nil {
			return fmt.Errorf("%s: %w", def.name, err)
		}
		if err := duckdb.RegisterScalarUDF(conn, def.name, udf); err != nil {
			return fmt.Errorf("registering %s: %w", def.name, err)
		}
	}
	return nil
}
