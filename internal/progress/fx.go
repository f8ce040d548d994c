package progress

import (
	"github.com/smallbiznis/coursemart/internal/progress/repository"
	"github.com/smallbiznis/coursemart/internal/progress/service"
	"go.uber.org/fx"
)

var Module = fx.Module("progress.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
