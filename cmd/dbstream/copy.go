package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbstream/internal/config"
	"dbstream/internal/introspect"
	"dbstream/internal/orchestrator"
	"dbstream/internal/verify"
)

func (a *app) copyCmd() *cobra.Command {
	var verifyAfter bool
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every selected target table from the source",
		Long: `Copy fills each selected target table from the source table of the same
name. The target schema decides which tables and columns are copied: source
tables or columns it lacks are ignored. Rows are appended. Foreign-key checks
on the target are disabled for the run and re-enabled afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCopy(cmd.Context(), verifyAfter)
		},
	}
	cmd.Flags().Int("workers", 0, "tables copied concurrently (default 6)")
	cmd.Flags().Int("batch-size", 0, "rows per write transaction (default 10000)")
	cmd.Flags().Int("buffer-size", 0, "rows buffered between reader and writer (default 5000)")
	cmd.Flags().BoolVar(&verifyAfter, "verify", false, "compare counts and content fingerprints after copying")
	_ = a.v.BindPFlag("runtime.workers", cmd.Flags().Lookup("workers"))
	_ = a.v.BindPFlag("runtime.batch_size", cmd.Flags().Lookup("batch-size"))
	_ = a.v.BindPFlag("runtime.buffer_size", cmd.Flags().Lookup("buffer-size"))
	return cmd
}

// introspectOptions compiles the table selection and column overrides.
func introspectOptions(run config.Run) ([]orchestrator.Option, error) {
	rewrite, err := run.ColumnRewrite(nil)
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{
		orchestrator.WithInclude(run.Include()),
		orchestrator.WithExclude(run.Exclude()),
	}
	if rewrite != nil {
		opts = append(opts, orchestrator.WithColumnRewrite(rewrite))
	}
	return opts, nil
}

func (a *app) runCopy(ctx context.Context, verifyAfter bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := a.loadValid()
	if err != nil {
		return err
	}
	flush := setupMetrics(run.Metrics, run.Job, a.log)
	defer flush()

	src, err := a.open(ctx, "source", run.Source)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := a.open(ctx, "target", run.Target)
	if err != nil {
		return err
	}
	defer dst.Close()

	opts, err := introspectOptions(run)
	if err != nil {
		return err
	}
	transforms, err := run.ValueTransforms()
	if err != nil {
		return err
	}
	rt := run.Runtime.Resolved()
	opts = append(opts,
		orchestrator.WithJob(run.Job),
		orchestrator.WithWorkers(rt.Workers),
		orchestrator.WithBatchSize(rt.BatchSize),
		orchestrator.WithBufferSize(rt.BufferSize),
		orchestrator.WithTransforms(transforms),
		orchestrator.WithLogger(a.log),
		orchestrator.WithTableObserver(a.printTable),
	)

	orch := orchestrator.New(src, dst, opts...)
	rep, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "copied %d rows from %d table(s) in %s (run %s)\n",
		rep.RowsWritten(), len(rep.Tables), rep.Duration.Truncate(time.Millisecond), rep.RunID)
	if failed := rep.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d tables failed: %w", len(failed), len(rep.Tables), rep.Err())
	}

	if !verifyAfter {
		return nil
	}
	defs, err := orch.Plan(ctx)
	if err != nil {
		return err
	}
	v := verify.New(src, dst,
		verify.WithTransforms(transforms),
		verify.WithWorkers(rt.Workers),
		verify.WithLogger(a.log),
	)
	return a.reportChecks(v.Compare(ctx, defs))
}

// printTable writes one progress line per finished table.
func (a *app) printTable(res orchestrator.TableResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res.Err != nil {
		fmt.Fprintf(a.out, "%s: FAILED after %d rows: %v\n", res.Table, res.RowsWritten, res.Err)
		return
	}
	fmt.Fprintf(a.out, "%s: %d rows in %d batch(es) (%s)\n",
		res.Table, res.RowsWritten, res.Batches, res.Duration.Truncate(time.Millisecond))
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List the target tables a copy would fill, with resolved column types",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run, err := a.load()
			if err != nil {
				return err
			}
			dst, err := a.open(ctx, "target", run.Target)
			if err != nil {
				return err
			}
			defer dst.Close()

			rewrite, err := run.ColumnRewrite(nil)
			if err != nil {
				return err
			}
			opts := []introspect.Option{
				introspect.WithInclude(run.Include()),
				introspect.WithExclude(run.Exclude()),
				introspect.WithLogger(a.log),
			}
			if rewrite != nil {
				opts = append(opts, introspect.WithColumnRewrite(rewrite))
			}
			defs, err := introspect.New(dst, opts...).Discover(ctx)
			if err != nil {
				return err
			}
			for _, td := range defs {
				fmt.Fprintf(a.out, "%s\n", td.Name())
				for _, c := range td.Columns() {
					fmt.Fprintf(a.out, "  %2d  %-24s %s\n", c.Ordinal, c.Name, c.Type)
				}
			}
			a.log.Debug("inspect: done", zap.Int("tables", len(defs)))
			return nil
		},
	}
}
