package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/cleanup"
	"github.com/EquidnaMX/stag-herd/internal/payment/webhook"
	"github.com/EquidnaMX/stag-herd/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve provider webhooks and the payments API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				foundation(),
				fx.Invoke(ensureSchema),
				domainModules(),
				webhook.Module,
				server.Module,
				cleanup.Scheduled,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
