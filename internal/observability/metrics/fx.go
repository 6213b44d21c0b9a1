package metrics

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/config"
)

var Module = fx.Module("metrics",
	fx.Provide(ConfigFrom),
	fx.Provide(PaymentsWithConfig),
	fx.Provide(newHTTPMetrics),
)

func ConfigFrom(cfg config.Config) Config {
	return Config{ServiceName: cfg.AppName, Environment: cfg.Environment}
}

func newHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	return NewHTTPMetrics(cfg, otel.GetMeterProvider())
}
