package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/audit"
	"github.com/EquidnaMX/stag-herd/internal/cleanup"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/events"
	"github.com/EquidnaMX/stag-herd/internal/idempotency"
	"github.com/EquidnaMX/stag-herd/internal/migration"
	"github.com/EquidnaMX/stag-herd/internal/observability"
	"github.com/EquidnaMX/stag-herd/internal/payment"
	"github.com/EquidnaMX/stag-herd/pkg/db"
)

// foundation is shared by every command that touches the database.
func foundation() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(newSnowflake),
		clock.Module,
		db.Module,
	)
}

// domainModules wires payments, idempotency, audit, the outbox and the
// cleanup worker.
func domainModules() fx.Option {
	return fx.Options(
		audit.Module,
		idempotency.Module,
		events.Module,
		payment.Module,
		cleanup.Module,
	)
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// ensureSchema brings the schema up to date when auto_migrate is on.
func ensureSchema(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return migrate(context.Background(), conn, cfg, log)
}

func migrate(ctx context.Context, conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if db.IsSQLite(cfg.Database) {
		log.Info("applying model schema to sqlite")
		return migration.AutoMigrate(conn.WithContext(ctx))
	}
	applied, err := migration.RunMigrations(ctx, conn)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Strings("versions", applied))
	return nil
}
