package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ResultSet is a fully materialized query result.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Session is one connection with the graph functions installed. Statements
// run in order on that connection and registry state persists across calls.
//
// Edge queries run on a pooled connection, not on the session's own. They
// see committed regular tables but not this connection's temporary tables or
// uncommitted writes. While the session has an explicit transaction open
// (BEGIN until COMMIT or ROLLBACK), algorithm functions that read an edge
// query fail at bind with ErrOpenTransaction instead of reading stale data.
// Generators and registry functions keep working.
type Session struct {
	client *DuckDBClient
	conn   *sql.Conn
	ext    *Extension
}

// OpenSession reserves a connection from client and registers ext on it.
func OpenSession(ctx context.Context, client *DuckDBClient, ext *Extension) (*Session, error) {
	conn, err := client.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserving connection: %w", err)
	}
	if err := ext.Register(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("registering functions: %w", err)
	}
	return &Session{client: client, conn: conn, ext: ext}, nil
}

func (s *Session) Extension() *Extension { return s.ext }

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, query string) error {
	ctx, cancel := s.client.Context(ctx)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, query)
	s.track(query, err)
	return err
}

// Query runs a statement and reads all of its rows.
func (s *Session) Query(ctx context.Context, query string) (*ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty statement")
	}
	ctx, cancel := s.client.Context(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, query)
	s.track(query, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, rows.Err()
}

// track follows BEGIN and COMMIT/ROLLBACK so binds know whether the session
// sits inside a transaction. A failed BEGIN opens nothing; a failed COMMIT
// still ends the transaction.
func (s *Session) track(query string, err error) {
	for _, stmt := range strings.Split(query, ";") {
		fields := strings.Fields(stmt)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "BEGIN", "START":
			if err == nil {
				s.ext.setTransaction(true)
			}
		case "COMMIT", "END", "ROLLBACK", "ABORT":
			s.ext.setTransaction(false)
		}
	}
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	s.ext.setTransaction(false)
	return s.conn.Close()
}
