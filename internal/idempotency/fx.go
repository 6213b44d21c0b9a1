package idempotency

import (
	"strings"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("idempotency",
	fx.Provide(NewStore),
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

func NewStore(p Params) Store {
	backend := strings.ToLower(strings.TrimSpace(p.Cfg.IdempotencyStore))
	if backend == "memory" {
		p.Log.Named("idempotency").Warn("using in-memory idempotency store; reservations are not shared across instances")
		return NewMemoryStore(p.Clock)
	}
	return NewGormStore(p.DB, p.Clock)
}
