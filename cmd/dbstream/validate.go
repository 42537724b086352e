package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dbstream/internal/config"
)

func (a *app) validateCmd() *cobra.Command {
	var connect bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the run configuration",
		Long: `Validate lints the run configuration and, with --connect, also checks that
both databases are reachable. No rows are read or written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.load()
			if err != nil {
				return err
			}
			issues := config.Validate(run)
			a.printIssues(issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", a.cfgFile)
			}
			if connect {
				ctx := cmd.Context()
				for _, side := range []struct {
					name string
					e    config.Endpoint
				}{{"source", run.Source}, {"target", run.Target}} {
					db, err := a.open(ctx, side.name, side.e)
					if err != nil {
						return err
					}
					err = db.Ping(ctx)
					_ = db.Close()
					if err != nil {
						return fmt.Errorf("ping %s: %w", side.name, err)
					}
				}
			}
			fmt.Fprintf(a.out, "configuration is valid: %s\n", a.cfgFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "also connect to source and target")
	return cmd
}
