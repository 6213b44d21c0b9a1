package registry

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
	// Extra lets a host contribute its own handlers with
	// fx.Annotate(..., fx.ResultTags(`group:"payment.handlers"`)).
	Extra []domain.Handler `group:"payment.handlers"`
}

func Provide(p Params) (*Registry, error) {
	reg, err := Build(p.Cfg, NewProviders(p.Cfg, nil), p.Clock, p.Extra...)
	if err != nil {
		return nil, err
	}

	log := p.Log.Named("payment.registry")
	for _, desc := range reg.Descriptors() {
		log.Debug("payment method registered",
			zap.String("method", string(desc.Method)),
			zap.Bool("enabled", desc.Enabled),
		)
	}
	return reg, nil
}

var Module = fx.Module("payment.registry",
	fx.Provide(Provide),
	fx.Provide(func(reg *Registry) domain.Registry { return reg }),
)
