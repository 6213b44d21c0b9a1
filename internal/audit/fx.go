package audit

import (
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/audit/repository"
	"github.com/EquidnaMX/stag-herd/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
