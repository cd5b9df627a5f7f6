// Package cli is the command tree a host binary hands its Manager to:
// create and alter run the schema lifecycle over every registered table.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/norm/database"
	"github.com/saltyorg/norm/internal/logging"
)

// Setup opens the manager and registers the host's bindings. It runs only
// for commands that touch the database.
type Setup func(ctx context.Context) (*database.Manager, error)

// BuildInfo is printed by the version command.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Options configures the command tree.
type Options struct {
	Name  string
	Build BuildInfo
	Log   logging.Options
	Setup Setup
}

// NewRootCommand builds the root command with create, alter, tables, ping
// and version subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Name == "" {
		opts.Name = "norm"
	}

	var (
		verbosity int
		logFile   string
	)

	root := &cobra.Command{
		Use:           opts.Name,
		Short:         "Manage the schema of registered tables",
		Long:          `Runs the create and alter hooks of every registered table binding, in registration order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logOpts := opts.Log
			if logFile != "" {
				logOpts.File = logFile
			}
			logging.Apply(logging.LevelForVerbosity(verbosity, logOpts.Level), logOpts, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")

	root.AddCommand(
		lifecycleCommand(opts.Setup, database.PhaseCreate, "Create every registered table"),
		lifecycleCommand(opts.Setup, database.PhaseAlter, "Bring every registered table up to date"),
		tablesCommand(opts.Setup),
		pingCommand(opts.Setup),
		versionCommand(opts.Name, opts.Build),
	)

	return root
}

// withManager runs fn against a freshly set up manager and closes it after.
func withManager(ctx context.Context, setup Setup, fn func(*database.Manager) error) error {
	if setup == nil {
		return fmt.Errorf("no database setup configured")
	}
	m, err := setup(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()
	return fn(m)
}

func lifecycleCommand(setup Setup, phase database.Phase, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(phase),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), setup, func(m *database.Manager) error {
				report, err := m.RunLifecycle(cmd.Context(), phase)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, res := range report.Results {
					if res.Err != nil {
						fmt.Fprintf(out, "FAIL %s: %v\n", res.Table, res.Err)
						continue
					}
					fmt.Fprintf(out, "ok   %s (%s)\n", res.Table, res.Duration.Round(time.Microsecond))
				}

				if failed := report.Failed(); len(failed) > 0 {
					return fmt.Errorf("%s failed for %d of %d tables: %w", phase, len(failed), len(report.Results), report.Err())
				}
				return nil
			})
		},
	}
}

func tablesCommand(setup Setup) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List registered tables and their visible columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), setup, func(m *database.Manager) error {
				out := cmd.OutOrStdout()
				for _, name := range m.Tables() {
					b, ok := m.Lookup(name)
					if !ok {
						continue
					}
					line := fmt.Sprintf("%s\t%s", name, strings.Join(b.Visible(), ","))
					if caps := capabilities(b); len(caps) > 0 {
						line += "\t" + strings.Join(caps, ",")
					}
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func capabilities(b database.Binding) []string {
	var t *database.Table
	switch v := b.(type) {
	case *database.Table:
		t = v
	case *database.AuthTable:
		t = v.Table
	case *database.Ledger:
		t = v.Table
	default:
		return nil
	}

	var caps []string
	if cred, ok := t.Credentials(); ok {
		caps = append(caps, "auth("+cred.IdentityColumn()+")")
	}
	if t.IsImmutable() {
		caps = append(caps, "ledger")
	}
	return caps
}

func pingCommand(setup Setup) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), setup, func(m *database.Manager) error {
				if err := m.Ping(cmd.Context()); err != nil {
					return err
				}
				stats := m.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "%s reachable (open %d, in use %d, idle %d, max %d)\n",
					m.Driver(), stats.OpenConnections, stats.InUse, stats.Idle, stats.MaxOpenConnections)
				return nil
			})
		},
	}
}

func versionCommand(name string, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s, built: %s)\n", name, build.Version, build.Commit, build.Date)
		},
	}
}
