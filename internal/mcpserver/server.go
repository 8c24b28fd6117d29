package mcpserver

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"onager/internal/database"
	"onager/internal/registry"
)

const (
	defaultMaxRows = 100
	limitMaxRows   = 1000
)

// Querier runs one SQL statement. *database.Session implements it.
type Querier interface {
	Query(ctx context.Context, sql string) (*database.ResultSet, error)
}

// Server wraps the MCP server with the graph SQL surface.
type Server struct {
	mcpServer *mcp.Server
	querier   Querier
	registry  *registry.Registry
	log       *zap.Logger

	// One session, so statements are serialized.
	mu sync.Mutex
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// NewServer creates a new MCP server instance. reg must be the registry
// behind querier's session so list_graphs and SQL agree.
func NewServer(cfg Config, querier Querier, reg *registry.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		querier:   querier,
		registry:  reg,
		log:       log.Named("mcp"),
	}
	s.registerTools()
	return s
}

// RunSQLArgs defines the input for run_sql tool.
type RunSQLArgs struct {
	SQL     string `json:"sql" jsonschema:"SQL statement to execute, may call any onager_ function"`
	MaxRows int    `json:"max_rows,omitempty" jsonschema:"maximum rows to return (default 100, at most 1000)"`
}

// RunSQLResult wraps the rows of one statement.
type RunSQLResult struct {
	Columns   []string `json:"columns" jsonschema:"column names"`
	Rows      [][]any  `json:"rows" jsonschema:"row values; non-finite doubles are strings"`
	RowCount  int      `json:"row_count" jsonschema:"total rows produced by the statement"`
	Truncated bool     `json:"truncated" jsonschema:"true when rows were cut at max_rows"`
}

// ListFunctionsArgs defines the input for list_functions tool.
type ListFunctionsArgs struct {
	Kind string `json:"kind,omitempty" jsonschema:"filter by kind: registry, node, pair, scalar, generator or table"`
}

// ListFunctionsResult wraps the function catalog.
type ListFunctionsResult struct {
	Functions []database.FunctionInfo `json:"functions" jsonschema:"SQL functions with signatures"`
}

// ListGraphsArgs defines the input for list_graphs tool.
type ListGraphsArgs struct{}

// ListGraphsResult wraps the registry summary.
type ListGraphsResult struct {
	Graphs []registry.Info `json:"graphs" jsonschema:"named graphs in creation order"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "run_sql",
		Description: "Run a DuckDB SQL statement with the onager graph functions installed. Algorithms take an edge query as their first argument, e.g. SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges'). Named graphs persist across calls.",
	}, s.handleRunSQL)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_functions",
		Description: "List every onager SQL function with its kind and signature, including parameters and output columns.",
	}, s.handleListFunctions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_graphs",
		Description: "List the named graphs in the registry with their direction, node count and edge count.",
	}, s.handleListGraphs)
}

// handleRunSQL executes one statement on the shared session.
func (s *Server) handleRunSQL(ctx context.Context, _ *mcp.CallToolRequest, args RunSQLArgs) (*mcp.CallToolResult, RunSQLResult, error) {
	if strings.TrimSpace(args.SQL) == "" {
		return nil, RunSQLResult{}, fmt.Errorf("sql must not be empty")
	}
	limit := args.MaxRows
	if limit <= 0 {
		limit = defaultMaxRows
	}
	if limit > limitMaxRows {
		limit = limitMaxRows
	}

	s.mu.Lock()
	rs, err := s.querier.Query(ctx, args.SQL)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("statement failed", zap.Error(err))
		return nil, RunSQLResult{}, fmt.Errorf("query failed: %w", err)
	}

	out := RunSQLResult{Columns: rs.Columns, Rows: [][]any{}, RowCount: len(rs.Rows)}
	for i, row := range rs.Rows {
		if i == limit {
			out.Truncated = true
			break
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = jsonValue(v)
		}
		out.Rows = append(out.Rows, vals)
	}
	s.log.Debug("statement finished", zap.Int("rows", out.RowCount), zap.Bool("truncated", out.Truncated))
	return nil, out, nil
}

// handleListFunctions returns the catalog, optionally filtered by kind.
func (s *Server) handleListFunctions(_ context.Context, _ *mcp.CallToolRequest, args ListFunctionsArgs) (*mcp.CallToolResult, ListFunctionsResult, error) {
	out := ListFunctionsResult{Functions: []database.FunctionInfo{}}
	for _, f := range database.Functions() {
		if args.Kind == "" || f.Kind == args.Kind {
			out.Functions = append(out.Functions, f)
		}
	}
	return nil, out, nil
}

// handleListGraphs summarizes the registry.
func (s *Server) handleListGraphs(_ context.Context, _ *mcp.CallToolRequest, _ ListGraphsArgs) (*mcp.CallToolResult, ListGraphsResult, error) {
	out := ListGraphsResult{Graphs: []registry.Info{}}
	if s.registry != nil {
		out.Graphs = append(out.Graphs, s.registry.List()...)
	}
	return nil, out, nil
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting MCP server on stdio")
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

// jsonValue makes a scanned value encodable: JSON has no Inf or NaN.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	case []byte:
		return string(x)
	}
	return v
}
