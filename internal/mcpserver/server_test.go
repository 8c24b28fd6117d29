package mcpserver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"onager/internal/database"
	"onager/internal/registry"
)

// MockQuerier implements Querier for testing
type MockQuerier struct {
	Result *database.ResultSet
	Err    error
	SQL    []string
}

func (m *MockQuerier) Query(ctx context.Context, sql string) (*database.ResultSet, error) {
	m.SQL = append(m.SQL, sql)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func manyRows(n int) *database.ResultSet {
	rs := &database.ResultSet{Columns: []string{"node_id"}}
	for i := range n {
		rs.Rows = append(rs.Rows, []any{int64(i)})
	}
	return rs
}

func TestHandleRunSQL(t *testing.T) {
	mock := &MockQuerier{Result: &database.ResultSet{
		Columns: []string{"node_id", "distance"},
		Rows: [][]any{
			{int64(1), 0.0},
			{int64(2), math.Inf(1)},
			{int64(3), nil},
		},
	}}
	s := &Server{querier: mock, log: zap.NewNop()}

	_, result, err := s.handleRunSQL(context.Background(), nil, RunSQLArgs{SQL: "SELECT * FROM onager_pth_dijkstra('SELECT src, dst, weight FROM e', source := 1)"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(mock.SQL) != 1 {
		t.Fatalf("Expected one statement, got %d", len(mock.SQL))
	}
	if result.RowCount != 3 || len(result.Rows) != 3 || result.Truncated {
		t.Errorf("Unexpected result shape: %+v", result)
	}
	if result.Rows[1][1] != "+Inf" {
		t.Errorf("Expected +Inf to be encoded as a string, got %v", result.Rows[1][1])
	}
	if result.Rows[2][1] != nil {
		t.Errorf("Expected NULL to stay nil, got %v", result.Rows[2][1])
	}
}

func TestHandleRunSQL_Limits(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		maxRows  int
		expected int
		trunc    bool
	}{
		{"default limit", 150, 0, 100, true},
		{"custom limit", 50, 10, 10, true},
		{"under limit", 5, 10, 5, false},
		{"capped limit", 1500, 5000, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{querier: &MockQuerier{Result: manyRows(tt.rows)}, log: zap.NewNop()}
			_, result, err := s.handleRunSQL(context.Background(), nil, RunSQLArgs{SQL: "SELECT 1", MaxRows: tt.maxRows})
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(result.Rows) != tt.expected {
				t.Errorf("Expected %d rows, got %d", tt.expected, len(result.Rows))
			}
			if result.Truncated != tt.trunc {
				t.Errorf("Expected truncated=%v, got %v", tt.trunc, result.Truncated)
			}
			if result.RowCount != tt.rows {
				t.Errorf("Expected row_count %d, got %d", tt.rows, result.RowCount)
			}
		})
	}
}

func TestHandleRunSQL_Errors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mock := &MockQuerier{Err: errors.New("Binder Error: edge query must return src BIGINT")}
	s := &Server{querier: mock, log: zap.New(core)}

	_, _, err := s.handleRunSQL(context.Background(), nil, RunSQLArgs{SQL: "SELECT * FROM onager_ctr_pagerank('SELECT 1')"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, mock.Err) {
		t.Errorf("Expected wrapped querier error, got: %v", err)
	}
	if logs.FilterMessage("statement failed").Len() != 1 {
		t.Error("Expected failure to be logged")
	}

	_, _, err = s.handleRunSQL(context.Background(), nil, RunSQLArgs{SQL: "   "})
	if err == nil {
		t.Error("Expected error for empty SQL")
	}
	if len(mock.SQL) != 1 {
		t.Errorf("Empty SQL should not reach the querier, got %v", mock.SQL)
	}
}

func TestHandleListFunctions(t *testing.T) {
	s := &Server{log: zap.NewNop()}

	_, all, err := s.handleListFunctions(context.Background(), nil, ListFunctionsArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(all.Functions) != len(database.Functions()) {
		t.Errorf("Expected full catalog, got %d entries", len(all.Functions))
	}

	_, gens, err := s.handleListFunctions(context.Background(), nil, ListFunctionsArgs{Kind: "generator"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(gens.Functions) != 3 {
		t.Errorf("Expected 3 generators, got %d", len(gens.Functions))
	}
	for _, f := range gens.Functions {
		if f.Kind != "generator" {
			t.Errorf("Unexpected kind %q in filtered list", f.Kind)
		}
	}

	_, none, _ := s.handleListFunctions(context.Background(), nil, ListFunctionsArgs{Kind: "nope"})
	if none.Functions == nil || len(none.Functions) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", none.Functions)
	}
}

func TestHandleListGraphs(t *testing.T) {
	reg := registry.New()
	if err := reg.Create("social", false); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddEdge("social", 1, 2, 1.0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Create("web", true); err != nil {
		t.Fatal(err)
	}

	s := &Server{registry: reg, log: zap.NewNop()}
	_, result, err := s.handleListGraphs(context.Background(), nil, ListGraphsArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Graphs) != 2 {
		t.Fatalf("Expected 2 graphs, got %d", len(result.Graphs))
	}
	if result.Graphs[0].Name != "social" || result.Graphs[0].Nodes != 2 || result.Graphs[0].Edges != 1 {
		t.Errorf("Unexpected first graph: %+v", result.Graphs[0])
	}
	if result.Graphs[1].Name != "web" || !result.Graphs[1].Directed {
		t.Errorf("Unexpected second graph: %+v", result.Graphs[1])
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer(Config{ServerName: "onager", ServerVersion: "0.1.0"}, &MockQuerier{}, registry.New(), nil)
	if s.mcpServer == nil {
		t.Fatal("Expected MCP server to be created")
	}
	if s.log == nil {
		t.Error("Expected a no-op logger when none is given")
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	if err := reg.Create("g", true); err != nil {
		t.Fatal(err)
	}
	s := NewServer(Config{ServerName: "onager", ServerVersion: "test"}, &MockQuerier{Result: manyRows(3)}, reg, nil)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	names := map[string]bool{}
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			t.Fatalf("listing tools: %v", err)
		}
		names[tool.Name] = true
	}
	for _, want := range []string{"run_sql", "list_functions", "list_graphs"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "run_sql",
		Arguments: map[string]any{"sql": "SELECT 1", "max_rows": 2},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "run_sql",
		Arguments: map[string]any{"sql": ""},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error for empty SQL")
	}
}
