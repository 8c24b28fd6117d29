package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"onager/internal/config"
	"onager/internal/database"
	"onager/internal/ffi"
	"onager/internal/logging"
	"onager/internal/metrics"
	"onager/internal/registry"
)

// app is one process worth of wiring: a DuckDB client, the boundary over a
// fresh registry, and a session with every function registered.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	promReg  *prometheus.Registry
	client   *database.DuckDBClient
	boundary *ffi.Boundary
	session  *database.Session
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	inv, err := ffi.InvokerFor(cfg.Adapter.Invocation)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	client, err := database.NewDuckDBClient(cfg.Database.DSN,
		database.WithThreads(cfg.Database.Threads),
		database.WithMemoryLimit(cfg.Database.MemoryLimitGB),
		database.WithTimeout(cfg.Database.QueryTimeout),
		database.WithMaxOpenConns(cfg.Database.MaxOpenConns),
	)
	if err != nil {
		return nil, err
	}

	b := ffi.New(registry.New(), ffi.WithMetrics(m))
	ext := database.NewExtension(client, b,
		database.WithLogger(log),
		database.WithMetrics(m),
		database.WithChunkSize(cfg.Adapter.ChunkSize),
		database.WithInvoker(inv),
	)
	session, err := database.OpenSession(ctx, client, ext)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Debug("database ready",
		zap.String("dsn", cfg.Database.DSN),
		zap.Int("max_open_conns", client.Config().MaxOpenConns),
		zap.String("invocation", cfg.Adapter.Invocation))

	return &app{
		cfg:      cfg,
		log:      log,
		promReg:  promReg,
		client:   client,
		boundary: b,
		session:  session,
	}, nil
}

// writeMetrics dumps every collected series in the Prometheus text format.
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.promReg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func (a *app) Close() error {
	err := a.session.Close()
	if cerr := a.client.Close(); err == nil {
		err = cerr
	}
	_ = a.log.Sync()
	return err
}
