package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onager/internal/database"
	"onager/internal/ffi"
)

func openSession(t *testing.T, opts ...database.ExtensionOption) *database.Session {
	t.Helper()
	ctx := context.Background()

	client, err := database.NewInMemoryDB(database.WithThreads(2))
	require.NoError(t, err, "failed to create duckdb client")
	t.Cleanup(func() { _ = client.Close() })

	ext := database.NewExtension(client, ffi.New(nil), opts...)
	s, err := database.OpenSession(ctx, client, ext)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Exec(ctx, "CREATE TABLE edges (src BIGINT, dst BIGINT, weight DOUBLE)"))
	require.NoError(t, s.Exec(ctx, "INSERT INTO edges VALUES (1, 2, 1.0), (2, 3, 1.0), (3, 4, 2.0), (4, 1, 1.0)"))
	return s
}

func query(t *testing.T, s *database.Session, sql string) *database.ResultSet {
	t.Helper()
	rs, err := s.Query(context.Background(), sql)
	require.NoError(t, err, sql)
	return rs
}

func TestPageRankThroughSQL(t *testing.T) {
	s := openSession(t)

	rs := query(t, s, "SELECT node_id, rank FROM onager_ctr_pagerank('SELECT src, dst FROM edges') ORDER BY node_id")
	assert.Equal(t, []string{"node_id", "rank"}, rs.Columns)
	require.Len(t, rs.Rows, 4)

	sum := 0.0
	for i, row := range rs.Rows {
		assert.Equal(t, int64(i+1), row[0])
		sum += row[1].(float64)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestNamedArgumentsAndWeights(t *testing.T) {
	s := openSession(t)

	rs := query(t, s, "SELECT node_id FROM onager_trv_bfs('SELECT src, dst FROM edges', source := 3)")
	require.Len(t, rs.Rows, 4)
	assert.Equal(t, int64(3), rs.Rows[0][0])

	rs = query(t, s, "SELECT distance FROM onager_pth_dijkstra('SELECT src, dst, weight FROM edges', source := 1) ORDER BY node_id")
	assert.Equal(t, []any{0.0}, rs.Rows[0])
	assert.Equal(t, []any{2.0}, rs.Rows[2])

	_, err := s.Query(context.Background(), "SELECT * FROM onager_trv_bfs('SELECT src, dst FROM edges')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required argument source")
}

func TestBindRejectsBadEdgeQuery(t *testing.T) {
	s := openSession(t)

	_, err := s.Query(context.Background(), "SELECT * FROM onager_ctr_pagerank('SELECT 1 AS src, 2::BIGINT AS dst')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge query must return")

	_, err = s.Query(context.Background(), "SELECT * FROM onager_ctr_pagerank('SELECT src FROM edges')")
	require.Error(t, err)
}

func TestEmptyInputAndDiameter(t *testing.T) {
	s := openSession(t)

	rs := query(t, s, "SELECT count(*) FROM onager_ctr_pagerank('SELECT src, dst FROM edges WHERE false')")
	assert.Equal(t, int64(0), rs.Rows[0][0])

	_, err := s.Query(context.Background(), "SELECT * FROM onager_mtr_diameter('SELECT src, dst FROM edges WHERE false')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty graph")

	rs = query(t, s, "SELECT diameter FROM onager_mtr_diameter('SELECT src, dst FROM edges')")
	assert.Equal(t, int64(2), rs.Rows[0][0])
}

func TestPaginationOverManyRows(t *testing.T) {
	for _, mode := range []string{ffi.ModeTwoPhase, ffi.ModeComputeOnce} {
		t.Run(mode, func(t *testing.T) {
			inv, err := ffi.InvokerFor(mode)
			require.NoError(t, err)
			s := openSession(t, database.WithInvoker(inv))

			rs := query(t, s, "SELECT count(*), sum(node_id) FROM onager_ctr_degree('SELECT range AS src, range AS dst FROM range(5000)')")
			assert.Equal(t, int64(5000), rs.Rows[0][0])
		})
	}
}

func TestGeneratorsAreSeeded(t *testing.T) {
	s := openSession(t)

	a := query(t, s, "SELECT src, dst FROM onager_gen_erdos_renyi(30, 0.3, seed := 5)")
	b := query(t, s, "SELECT src, dst FROM onager_gen_erdos_renyi(30, 0.3, seed := 5)")
	assert.Equal(t, a.Rows, b.Rows)
	assert.NotEmpty(t, a.Rows)

	rs := query(t, s, "SELECT count(*) FROM onager_gen_barabasi_albert(20, 2)")
	assert.Equal(t, int64(36), rs.Rows[0][0])
}

func TestRegistryScalarsThroughSQL(t *testing.T) {
	s := openSession(t)

	rs := query(t, s, "SELECT onager_create_graph('g', true)")
	assert.Equal(t, int32(0), rs.Rows[0][0])
	rs = query(t, s, "SELECT onager_create_graph('g', false)")
	assert.Equal(t, int32(-1), rs.Rows[0][0])

	query(t, s, "SELECT onager_add_edge('g', src, dst, weight) FROM edges")
	rs = query(t, s, "SELECT onager_node_count('g'), onager_edge_count('g'), onager_node_in_degree('g', 1), onager_node_out_degree('missing', 1)")
	assert.Equal(t, []any{int64(4), int64(4), int64(1), int64(-1)}, rs.Rows[0])

	rs = query(t, s, "SELECT name, directed, node_count, edge_count FROM onager_list_graphs()")
	assert.Equal(t, [][]any{{"g", true, int64(4), int64(4)}}, rs.Rows)

	rs = query(t, s, "SELECT count(*) FROM onager_cmm_components('SELECT src, dst FROM onager_graph_edges(''g'')')")
	assert.Equal(t, int64(4), rs.Rows[0][0])

	rs = query(t, s, "SELECT onager_drop_graph('g')")
	assert.Equal(t, int32(0), rs.Rows[0][0])
	rs = query(t, s, "SELECT onager_drop_graph('g')")
	assert.Equal(t, int32(-1), rs.Rows[0][0])

	rs = query(t, s, "SELECT version FROM onager_version()")
	assert.Equal(t, ffi.Version, rs.Rows[0][0])
}

func TestFunctionsListing(t *testing.T) {
	fns := database.Functions()
	assert.Len(t, fns, 9+47+3)

	names := map[string]bool{}
	for _, f := range fns {
		names[f.Name] = true
	}
	for _, want := range []string{"onager_add_edge", "onager_last_error", "onager_ctr_pagerank", "onager_gen_watts_strogatz", "onager_graph_edges"} {
		assert.True(t, names[want], want)
	}
}

func TestApproximationAndParallelThroughSQL(t *testing.T) {
	s := openSession(t)

	tour := query(t, s, "SELECT \"order\", node_id FROM onager_apx_tsp('SELECT src, dst, weight FROM edges') ORDER BY \"order\"")
	require.Len(t, tour.Rows, 5)
	assert.Equal(t, tour.Rows[0][1], tour.Rows[4][1])

	cover := query(t, s, "SELECT node_id FROM onager_apx_vertex_cover('SELECT src, dst FROM edges')")
	assert.NotEmpty(t, cover.Rows)

	seq := query(t, s, "SELECT node_id, rank FROM onager_ctr_pagerank('SELECT src, dst FROM edges') ORDER BY node_id")
	par := query(t, s, "SELECT node_id, rank FROM onager_par_pagerank('SELECT src, dst FROM edges') ORDER BY node_id")
	require.Len(t, par.Rows, len(seq.Rows))
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i][0], par.Rows[i][0])
		assert.InDelta(t, seq.Rows[i][1].(float64), par.Rows[i][1].(float64), 1e-9)
	}
}

func TestOmittedAndNullArguments(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		sql     string
		rows    int
		wantErr string
	}{
		{
			name: "all named omitted",
			sql:  "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges')",
			rows: 4,
		},
		{
			name: "some named given",
			sql:  "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges', damping := 0.9)",
			rows: 4,
		},
		{
			name: "every named given",
			sql:  "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges', damping := 0.5, iterations := 20, directed := false)",
			rows: 4,
		},
		{
			name: "named NULL keeps default",
			sql:  "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges', damping := NULL)",
			rows: 4,
		},
		{
			name: "integral double for BIGINT",
			sql:  "SELECT * FROM onager_sub_k_hop('SELECT src, dst FROM edges', start := 1, k := 1.0)",
			rows: 2,
		},
		{
			name: "generator seed omitted",
			sql:  "SELECT * FROM onager_gen_watts_strogatz(10, 2, 0.0)",
			rows: 10,
		},
		{
			name:    "required named NULL",
			sql:     "SELECT * FROM onager_pth_dijkstra('SELECT src, dst FROM edges', source := NULL)",
			wantErr: "missing required argument source",
		},
		{
			name:    "positional NULL",
			sql:     "SELECT * FROM onager_gen_erdos_renyi(NULL, 0.3)",
			wantErr: "argument n must not be NULL",
		},
		{
			name:    "NULL edge query",
			sql:     "SELECT * FROM onager_ctr_degree(NULL)",
			wantErr: "empty query",
		},
		{
			name:    "wrong value type",
			sql:     "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges', directed := 'maybe')",
			wantErr: "directed must be BOOLEAN",
		},
		{
			name:    "unknown named argument",
			sql:     "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges', alpha := 0.5)",
			wantErr: "alpha",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := s.Query(ctx, tt.sql)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rs.Rows, tt.rows)
		})
	}
}

func TestCountStarOverTableFunctions(t *testing.T) {
	s := openSession(t)
	query(t, s, "SELECT onager_create_graph('g', true)")
	query(t, s, "SELECT onager_add_edge('g', src, dst, weight) FROM edges")

	tests := []struct {
		sql  string
		want int64
	}{
		{"SELECT count(*) FROM onager_ctr_pagerank('SELECT src, dst FROM edges')", 4},
		{"SELECT count(*) FROM onager_trv_bfs('SELECT src, dst FROM edges', source := 1)", 4},
		{"SELECT count(*) FROM onager_mtr_density('SELECT src, dst FROM edges')", 1},
		{"SELECT count(*) FROM onager_gen_erdos_renyi(10, 1.0)", 45},
		{"SELECT count(*) FROM onager_list_graphs()", 1},
		{"SELECT count(*) FROM onager_version()", 1},
		{"SELECT count(*) FROM onager_graph_edges('g')", 4},
		{"SELECT 1 FROM onager_cmm_louvain('SELECT src, dst FROM edges') LIMIT 1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			rs := query(t, s, tt.sql)
			require.Len(t, rs.Rows, 1)
			if tt.want > 1 {
				assert.Equal(t, tt.want, rs.Rows[0][0])
			}
		})
	}
}

func TestLastErrorThroughSQL(t *testing.T) {
	s := openSession(t)

	rs := query(t, s, "SELECT onager_last_error()")
	assert.Nil(t, rs.Rows[0][0])

	query(t, s, "SELECT onager_create_graph('g', true)")
	rs = query(t, s, "SELECT onager_create_graph('g', true)")
	assert.Equal(t, int32(-1), rs.Rows[0][0])

	rs = query(t, s, "SELECT onager_last_error()")
	msg, ok := rs.Rows[0][0].(string)
	require.True(t, ok, "last error should be VARCHAR, got %T", rs.Rows[0][0])
	assert.NotEmpty(t, msg)
	assert.Contains(t, msg, "graph already exists")
}

func TestEdgeQueriesInsideTransaction(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, "BEGIN TRANSACTION"))
	require.NoError(t, s.Exec(ctx, "INSERT INTO edges VALUES (5, 6, 1.0)"))

	_, err := s.Query(ctx, "SELECT * FROM onager_ctr_degree('SELECT src, dst FROM edges')")
	require.Error(t, err)
	assert.ErrorContains(t, err, "open transaction")

	rs := query(t, s, "SELECT count(*) FROM onager_gen_erdos_renyi(5, 1.0)")
	assert.Equal(t, int64(10), rs.Rows[0][0])

	require.NoError(t, s.Exec(ctx, "ROLLBACK"))
	rs = query(t, s, "SELECT count(*) FROM onager_ctr_degree('SELECT src, dst FROM edges')")
	assert.Equal(t, int64(4), rs.Rows[0][0])

	require.NoError(t, s.Exec(ctx, "BEGIN"))
	require.NoError(t, s.Exec(ctx, "INSERT INTO edges VALUES (5, 6, 1.0)"))
	require.NoError(t, s.Exec(ctx, "COMMIT"))
	rs = query(t, s, "SELECT count(*) FROM onager_ctr_degree('SELECT src, dst FROM edges')")
	assert.Equal(t, int64(6), rs.Rows[0][0])
}

func TestTemporaryTablesAreNotVisible(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, "CREATE TEMP TABLE scratch AS SELECT src, dst FROM edges"))
	_, err := s.Query(ctx, "SELECT * FROM onager_ctr_degree('SELECT src, dst FROM scratch')")
	require.Error(t, err)
	assert.ErrorContains(t, err, "temporary tables")
}
