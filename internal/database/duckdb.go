// Package database hosts the graph functions inside DuckDB: it owns the
// connection pool and registers the scalar and table functions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marcboeker/go-duckdb"
)

// =============================================================================
// DATABASE CLIENT
// =============================================================================

// DatabaseConfig holds configuration options for the database.
type DatabaseConfig struct {
	Threads       int           // Number of threads for DuckDB (0 = default)
	MemoryLimitGB int           // Memory limit in GB (0 = default)
	Timeout       time.Duration // Query timeout (0 = no timeout)
	MaxOpenConns  int           // Pool size, at least 2
}

// MinOpenConns is the smallest usable pool: table functions read their edge
// query on a second connection while the outer query holds the first.
const MinOpenConns = 2

// DuckDBClient manages the connection pool of a DuckDB database.
type DuckDBClient struct {
	db     *sql.DB
	config DatabaseConfig
}

// DuckDBOption configures the DuckDB client.
type DuckDBOption func(*DuckDBClient)

// WithThreads sets the number of DuckDB threads.
func WithThreads(n int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Threads = n
	}
}

// WithMemoryLimit sets the DuckDB memory limit in GB.
func WithMemoryLimit(gb int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.MemoryLimitGB = gb
	}
}

// WithTimeout sets the query timeout.
func WithTimeout(d time.Duration) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Timeout = d
	}
}

// WithMaxOpenConns sets the pool size. Values below MinOpenConns are raised.
func WithMaxOpenConns(n int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.MaxOpenConns = n
	}
}

// NewDuckDBClient creates a new DuckDB client.
// If dsn is empty, an in-memory database is created. All pooled connections
// share the same database instance, in-memory ones included, and each one
// gets the function macros installed when it is opened.
func NewDuckDBClient(dsn string, opts ...DuckDBOption) (*DuckDBClient, error) {
	client := &DuckDBClient{
		config: DatabaseConfig{MaxOpenConns: 4},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.config.MaxOpenConns = max(client.config.MaxOpenConns, MinOpenConns)

	if dsn == "" {
		dsn = ":memory:"
	}

	connector, err := duckdb.NewConnector(dsn, installMacros)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	db := sql.OpenDB(connector)
	client.db = db

	ctx, cancel := client.Context(context.Background())
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	db.SetMaxOpenConns(client.config.MaxOpenConns)
	db.SetMaxIdleConns(client.config.MaxOpenConns)
	db.SetConnMaxLifetime(0) // Connections don't expire

	if err := client.Configure(client.config); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure duckdb: %w", err)
	}

	return client, nil
}

// NewInMemoryDB creates a new in-memory DuckDB database.
func NewInMemoryDB(opts ...DuckDBOption) (*DuckDBClient, error) {
	return NewDuckDBClient(":memory:", opts...)
}

func (c *DuckDBClient) Config() DatabaseConfig {
	return c.config
}

// Close releases database resources.
func (c *DuckDBClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Context derives a context bounded by the configured query timeout.
func (c *DuckDBClient) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout > 0 {
		return context.WithTimeout(parent, c.config.Timeout)
	}
	return context.WithCancel(parent)
}

// Configure applies database configuration options.
func (c *DuckDBClient) Configure(cfg DatabaseConfig) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if cfg.Threads > 0 {
		_, err := c.db.Exec(fmt.Sprintf("PRAGMA threads=%d", cfg.Threads))
		if err != nil {
			return fmt.Errorf("setting threads: %w", err)
		}
	}

	if cfg.MemoryLimitGB > 0 {
		_, err := c.db.Exec(fmt.Sprintf("PRAGMA memory_limit='%dGB'", cfg.MemoryLimitGB))
		if err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}

	c.config = cfg
	return nil
}

// Ping verifies database connectivity.
func (c *DuckDBClient) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// Conn reserves one connection from the pool. Functions are registered on
// it and interactive sessions run their statements on it.
func (c *DuckDBClient) Conn(ctx context.Context) (*sql.Conn, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return c.db.Conn(ctx)
}

// Query executes a query that returns rows on any pooled connection.
func (c *DuckDBClient) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return c.db.QueryContext(ctx, query, args...)
}
