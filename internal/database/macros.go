package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"onager/internal/adapter"
	"onager/internal/engine"
)

// =============================================================================
// SQL MACROS
// =============================================================================
//
// The functions users call are table macros over internal table functions
// that take only VARCHAR arguments: the edge query and an option string the
// macro assembles from its named parameters. Omitted parameters are NULL in
// the macro and simply drop out of the option string. The macro also filters
// on the first output column, so the scan always projects at least one
// column, count(*) included.

// internalPrefix marks the raw table functions behind the macros.
const internalPrefix = "__"

func internalName(name string) string { return internalPrefix + name }

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// algorithmMacro renders the CREATE MACRO statement for fn.
func algorithmMacro(fn *engine.Algorithm) string {
	var params, named, opts, args []string
	if fn.Kind != engine.Generator {
		params = append(params, "edge_query")
		args = append(args, "coalesce(CAST(edge_query AS VARCHAR), '')")
	}
	for _, p := range fn.Params {
		id := quoteIdent(p.Name)
		if p.Positional {
			params = append(params, id)
		} else {
			named = append(named, id+" := NULL")
		}
		opts = append(opts, fmt.Sprintf("'%s=' || CAST(%s AS VARCHAR)", p.Name, id))
	}
	params = append(params, named...)

	options := "''"
	if len(opts) > 0 {
		options = fmt.Sprintf("coalesce(concat_ws('%s', %s), '')", adapter.OptionSeparator, strings.Join(opts, ", "))
	}
	args = append(args, options)

	return tableMacro(fn.SQLName(), params, strings.Join(args, ", "), fn.Columns[0].Name)
}

func tableMacro(name string, params []string, args, filter string) string {
	return fmt.Sprintf("CREATE OR REPLACE TEMP MACRO %s(%s) AS TABLE SELECT * FROM %s(%s) AS r WHERE r.%s IS NOT NULL",
		name, strings.Join(params, ", "), internalName(name), args, quoteIdent(filter))
}

// macroStatements lists the DDL that installs every public function name.
func macroStatements() []string {
	algos := engine.Algorithms()
	stmts := make([]string, 0, len(algos)+3)
	for _, fn := range algos {
		stmts = append(stmts, algorithmMacro(fn))
	}
	stmts = append(stmts,
		tableMacro("onager_list_graphs", nil, "", "name"),
		tableMacro("onager_version", nil, "", "version"),
		tableMacro("onager_graph_edges", []string{"name"}, "coalesce(CAST(name AS VARCHAR), '')", "src"),
	)
	return stmts
}

// installMacros runs on every new pooled connection. Temporary macros are
// per connection, while the raw functions live in the shared catalog, so
// nested calls inside edge queries resolve on whichever connection runs them.
func installMacros(execer driver.ExecerContext) error {
	ctx := context.Background()
	for _, stmt := range macroStatements() {
		if _, err := execer.ExecContext(ctx, stmt, nil); err != nil {
			return fmt.Errorf("installing macros: %w", err)
		}
	}
	return nil
}
