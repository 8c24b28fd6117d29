package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrEdgeQueryShape = errors.New("edge query must return src BIGINT, dst BIGINT[, weight DOUBLE]")

// ErrOpenTransaction is returned at bind time while the session has an open
// transaction: edge queries run on another connection and would silently
// read the last committed state.
var ErrOpenTransaction = errors.New("edge queries cannot run inside an open transaction; COMMIT or ROLLBACK first")

const hintTempTables = "edge queries run on a separate connection and cannot see temporary tables"

// edgeShape is what bind learned about an edge query.
type edgeShape struct {
	query    string
	weighted bool
}

func normalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

// describeEdgeQuery checks the query's column layout without reading any
// rows. It runs on a pooled connection, so temporary tables of the calling
// session are out of reach.
func describeEdgeQuery(ctx context.Context, client *DuckDBClient, query string) (edgeShape, error) {
	query = normalizeQuery(query)
	if query == "" {
		return edgeShape{}, fmt.Errorf("%w: empty query", ErrEdgeQueryShape)
	}
	rows, err := client.Query(ctx, "SELECT * FROM ("+query+") AS onager_edges LIMIT 0")
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return edgeShape{}, fmt.Errorf("checking edge query: %w (%s)", err, hintTempTables)
		}
		return edgeShape{}, fmt.Errorf("checking edge query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return edgeShape{}, fmt.Errorf("checking edge query: %w", err)
	}
	if len(types) < 2 || len(types) > 3 {
		return edgeShape{}, fmt.Errorf("%w: got %d columns", ErrEdgeQueryShape, len(types))
	}
	want := []string{"BIGINT", "BIGINT", "DOUBLE"}
	for i, ct := range types {
		if got := ct.DatabaseTypeName(); got != want[i] {
			return edgeShape{}, fmt.Errorf("%w: column %d (%s) is %s", ErrEdgeQueryShape, i+1, ct.Name(), got)
		}
	}
	return edgeShape{query: query, weighted: len(types) == 3}, nil
}

// streamEdges runs the edge query and hands its rows to sink in batches of
// at most batch edges. weights is nil for unweighted queries. NULL endpoints
// are an error; a NULL weight counts as 1.
func streamEdges(ctx context.Context, client *DuckDBClient, shape edgeShape, batch int, sink func(src, dst []int64, weights []float64) error) (int, error) {
	rows, err := client.Query(ctx, shape.query)
	if err != nil {
		return 0, fmt.Errorf("running edge query: %w", err)
	}
	defer rows.Close()

	src := make([]int64, 0, batch)
	dst := make([]int64, 0, batch)
	var weights []float64
	if shape.weighted {
		weights = make([]float64, 0, batch)
	}
	flush := func() error {
		if len(src) == 0 {
			return nil
		}
		if err := sink(src, dst, weights); err != nil {
			return err
		}
		src, dst = src[:0], dst[:0]
		if weights != nil {
			weights = weights[:0]
		}
		return nil
	}

	total := 0
	var s, d sql.NullInt64
	var w sql.NullFloat64
	for rows.Next() {
		if shape.weighted {
			err = rows.Scan(&s, &d, &w)
		} else {
			err = rows.Scan(&s, &d)
		}
		if err != nil {
			return total, fmt.Errorf("reading edge row %d: %w", total+1, err)
		}
		if !s.Valid || !d.Valid {
			return total, fmt.Errorf("edge row %d has a NULL endpoint", total+1)
		}
		src = append(src, s.Int64)
		dst = append(dst, d.Int64)
		if shape.weighted {
			if w.Valid {
				weights = append(weights, w.Float64)
			} else {
				weights = append(weights, 1)
			}
		}
		total++
		if len(src) == batch {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("reading edge query: %w", err)
	}
	return total, flush()
}
