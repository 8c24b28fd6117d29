package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"onager/internal/database"
	"onager/internal/ffi"
	"onager/internal/mcpserver"
	"onager/ui/console"
	"onager/ui/tui"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [sql...]",
		Short: "Run SQL statements and print their results",
		Long: `Run one or more SQL statements in order on a single session, so graphs
created by earlier statements are visible to later ones.`,
		Example: `  onager query "SELECT * FROM onager_gen_erdos_renyi(10, 0.3, seed := 7)"
  onager query "SELECT onager_create_graph('g', true)" "SELECT onager_node_count('g')"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := opts.finish(a); err == nil {
					err = cerr
				}
			}()

			out := cmd.OutOrStdout()
			for _, stmt := range args {
				rs, err := a.session.Query(cmd.Context(), stmt)
				if err != nil {
					return fmt.Errorf("statement %q: %w", stmt, err)
				}
				console.Print(out, rs)
			}
			return nil
		},
	}
}

func newFunctionsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the SQL functions onager registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fns []database.FunctionInfo
			for _, f := range database.Functions() {
				if kind == "" || f.Kind == kind {
					fns = append(fns, f)
				}
			}
			if len(fns) == 0 {
				return fmt.Errorf("no functions of kind %q", kind)
			}
			console.PrintFunctions(cmd.OutOrStdout(), fns)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list one kind: registry, node, pair, scalar, generator or table")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the onager version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "onager %s\n", ffi.Version)
		},
	}
}

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive SQL shell with the graph functions installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := opts.finish(a); err == nil {
					err = cerr
				}
			}()
			return tui.Start(a.session, database.Functions())
		},
	}
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the graph SQL surface as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := opts.finish(a); err == nil {
					err = cerr
				}
			}()

			srv := mcpserver.NewServer(mcpserver.Config{
				ServerName:    a.cfg.MCP.ServerName,
				ServerVersion: a.cfg.MCP.ServerVersion,
			}, a.session, a.boundary.Registry(), a.log)
			return srv.Start(ctx)
		},
	}
}
