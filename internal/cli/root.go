// Package cli wires configuration, DuckDB and the graph functions into the
// onager command tree.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"onager/internal/config"
)

type rootOptions struct {
	configPath string
	dsn        string
	logLevel   string
	metrics    bool
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the onager command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "onager",
		Short: "Graph analytics as DuckDB table functions",
		Long: `onager installs graph algorithms (centrality, communities, traversal,
paths, link prediction, metrics, spanning trees, subgraphs, approximations,
parallel variants and generators) as DuckDB SQL functions and runs statements against them.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&opts.dsn, "dsn", "", "DuckDB database (overrides config, default in-memory)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	pf.BoolVar(&opts.metrics, "metrics", false, "print collected metrics to stderr on exit")

	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newFunctionsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newShellCmd(opts))
	rootCmd.AddCommand(newMCPCmd(opts))

	return rootCmd
}

// loadConfig reads the config file and applies flag overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.dsn != "" {
		cfg = cfg.WithDSN(o.dsn)
	}
	if o.logLevel != "" {
		cfg = cfg.WithLogLevel(o.logLevel)
	}
	return cfg, cfg.Validate()
}

// open loads the config and starts the app for one command.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return openApp(ctx, cfg)
}

// finish closes a and, when requested, dumps metrics.
func (o *rootOptions) finish(a *app) error {
	if o.metrics {
		if err := a.writeMetrics(os.Stderr); err != nil {
			a.log.Warn("metrics dump failed", zap.Error(err))
		}
	}
	return a.Close()
}
