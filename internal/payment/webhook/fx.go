package webhook

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/idempotency"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/registry"
)

var Module = fx.Module("payment.webhook",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Registry *registry.Registry
	Store    idempotency.Store
	Approver domain.Approver
	AuditSvc auditdomain.Service     `optional:"true"`
	Metrics  *metrics.PaymentMetrics `optional:"true"`
	Clock    clock.Clock             `optional:"true"`
}

func Provide(p Params) *Pipeline {
	return NewPipeline(
		Config{
			IdempotencyTTL:   p.Cfg.IdempotencyWindow(),
			SuspiciousWindow: p.Cfg.RateDecay(),
		},
		p.Registry,
		p.Store,
		p.Approver,
		p.AuditSvc,
		p.Metrics,
		p.Clock,
		p.Log,
	)
}
