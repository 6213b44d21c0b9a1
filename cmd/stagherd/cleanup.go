package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/cleanup"
)

func cleanupCmd() *cobra.Command {
	var (
		revalidate     bool
		skipRevalidate bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run one cleanup sweep over stale and orphaned payments",
		Long: `Run one cleanup sweep and exit.

The sweep deletes payments without an order, optionally re-checks recent
pending payments with their provider, expires stale pending payments and
purges expired webhook reservations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts cleanup.Options
			switch {
			case revalidate:
				opts.Revalidate = &revalidate
			case skipRevalidate:
				off := false
				opts.Revalidate = &off
			}

			var worker *cleanup.Worker
			app := fx.New(
				foundation(),
				fx.Invoke(ensureSchema),
				domainModules(),
				fx.Populate(&worker),
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = app.Stop(context.Background()) }()

			report, err := worker.RunOnce(ctx, opts)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revalidate, "revalidate", false, "re-check recent pending payments with their provider")
	cmd.Flags().BoolVar(&skipRevalidate, "skip-revalidate", false, "skip provider re-checks even when enabled in configuration")
	cmd.MarkFlagsMutuallyExclusive("revalidate", "skip-revalidate")
	return cmd
}

func printReport(cmd *cobra.Command, report cleanup.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "orphans deleted:        %d\n", report.OrphansDeleted)
	if report.RevalidationSkipped {
		fmt.Fprintln(out, "revalidation:           skipped")
	} else {
		fmt.Fprintf(out, "revalidated:            %d (moved %d, failed %d)\n", report.Revalidated, report.Moved, report.Failed)
	}
	fmt.Fprintf(out, "stale pending expired:  %d (registered before %s)\n", report.Canceled, report.StaleCutoff.Format("2006-01-02"))
	fmt.Fprintf(out, "reservations purged:    %d\n", report.ExpiredReservations)
}
