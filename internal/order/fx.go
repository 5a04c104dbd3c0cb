package order

import (
	"github.com/smallbiznis/fastbillsync/internal/order/domain"
	"github.com/smallbiznis/fastbillsync/internal/order/repository"
	"github.com/smallbiznis/fastbillsync/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		func(s *service.Service) domain.Store { return s },
		func(s *service.Service) domain.Catalog { return s },
		service.NewEmailValidator,
	),
)
