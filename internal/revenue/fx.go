package revenue

import (
	"github.com/smallbiznis/coursemart/internal/revenue/repository"
	"github.com/smallbiznis/coursemart/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
