package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dbstream/internal/introspect"
	"dbstream/internal/verify"
)

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare row counts and content fingerprints between source and target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run, err := a.loadValid()
			if err != nil {
				return err
			}
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

			rewrite, err := run.ColumnRewrite(nil)
			if err != nil {
				return err
			}
			transforms, err := run.ValueTransforms()
			if err != nil {
				return err
			}
			opts := []introspect.Option{introspect.WithInclude(run.Include()), introspect.WithExclude(run.Exclude())}
			if rewrite != nil {
				opts = append(opts, introspect.WithColumnRewrite(rewrite))
			}
			defs, err := introspect.New(dst, opts...).Discover(ctx)
			if err != nil {
				return err
			}
			v := verify.New(src, dst,
				verify.WithTransforms(transforms),
				verify.WithWorkers(run.Runtime.Resolved().Workers),
				verify.WithLogger(a.log),
			)
			return a.reportChecks(v.Compare(ctx, defs))
		},
	}
}

// reportChecks prints one line per table and fails when any table differs.
func (a *app) reportChecks(checks []verify.TableCheck, err error) error {
	if err != nil {
		return err
	}
	bad := 0
	for _, c := range checks {
		switch {
		case c.Err != nil:
			bad++
			fmt.Fprintf(a.out, "%s: ERROR %v\n", c.Table, c.Err)
		case !c.CountsMatch():
			bad++
			fmt.Fprintf(a.out, "%s: MISMATCH source=%d target=%d rows\n", c.Table, c.Source.Rows, c.Target.Rows)
		case !c.Match():
			bad++
			fmt.Fprintf(a.out, "%s: MISMATCH %d rows, contents differ\n", c.Table, c.Source.Rows)
		default:
			fmt.Fprintf(a.out, "%s: ok %d rows\n", c.Table, c.Source.Rows)
		}
	}
	if bad > 0 {
		return fmt.Errorf("verify: %d of %d tables differ", bad, len(checks))
	}
	return nil
}
