package catalog

import (
	"github.com/smallbiznis/coursemart/internal/catalog/domain"
	"github.com/smallbiznis/coursemart/internal/catalog/repository"
	"github.com/smallbiznis/coursemart/internal/catalog/service"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(client *videohost.Client) domain.MediaHost { return client }),
	fx.Provide(service.New),
)
