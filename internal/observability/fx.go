package observability

import (
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/observability/logger"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/observability/tracing"
)

var Module = fx.Options(
	logger.Module,
	tracing.Module,
	metrics.Module,
)
