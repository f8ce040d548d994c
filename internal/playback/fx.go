package playback

import (
	"github.com/smallbiznis/coursemart/internal/playback/domain"
	"github.com/smallbiznis/coursemart/internal/playback/service"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"github.com/smallbiznis/coursemart/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("playback.service",
	fx.Provide(func(client *videohost.Client) domain.TokenIssuer { return client }),
	fx.Provide(func(limiter *ratelimit.CommerceLimiter) domain.Limiter { return limiter }),
	fx.Provide(service.New),
)
