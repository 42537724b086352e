package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"dbstream/internal/config"
	"dbstream/internal/logging"
	"dbstream/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	v   *viper.Viper
	log *zap.Logger

	// out receives progress lines, possibly from several workers.
	mu  sync.Mutex
	out io.Writer

	// openDB is a test seam; it points to storage.New.
	openDB func(ctx context.Context, cfg storage.Config) (*storage.DB, error)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      config.NewViper(),
		out:    out,
		log:    zap.NewNop(),
		openDB: storage.New,
	}

	root := &cobra.Command{
		Use:   "dbstream",
		Short: "Copy tables between SQL databases",
		Long: `dbstream fills the tables of an existing target schema with the rows of
the same-named source tables, streaming each table through a bounded buffer
and writing it in batched transactions while the target's foreign-key checks
are suspended.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(a.logLevel, a.logFormat)
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "run config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "log format: json or console")
	root.PersistentFlags().String("job", "", "job name used in logs and metrics")
	_ = a.v.BindPFlag("job", root.PersistentFlags().Lookup("job"))

	root.AddCommand(
		a.copyCmd(),
		a.inspectCmd(),
		a.verifyCmd(),
		a.validateCmd(),
		versionCmd(),
	)
	return root
}

// load reads the run config with flags and environment applied.
func (a *app) load() (config.Run, error) {
	return config.LoadWith(a.v, a.cfgFile)
}

// loadValid loads the run config and rejects it when validation finds errors.
// Every issue is printed.
func (a *app) loadValid() (config.Run, error) {
	run, err := a.load()
	if err != nil {
		return run, err
	}
	issues := config.Validate(run)
	a.printIssues(issues)
	if config.HasErrors(issues) {
		return run, fmt.Errorf("configuration is invalid: %d issue(s)", len(issues))
	}
	return run, nil
}

func (a *app) printIssues(issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(a.out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}

// open connects to one side of the run.
func (a *app) open(ctx context.Context, side string, e config.Endpoint) (*storage.DB, error) {
	db, err := a.openDB(ctx, e.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", side, err)
	}
	a.log.Info("storage: connected", zap.String("side", side), zap.String("kind", e.Kind))
	return db, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dbstream", version)
		},
	}
}
