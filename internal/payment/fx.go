package payment

import (
	"go.uber.org/fx"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/registry"
	"github.com/EquidnaMX/stag-herd/internal/payment/repository"
	"github.com/EquidnaMX/stag-herd/internal/payment/service"
)

var Module = fx.Module("payment.service",
	registry.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Manager { return s }),
	fx.Provide(func(s *service.Service) domain.Approver { return s }),
)
