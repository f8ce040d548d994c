package purchase

import (
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	"github.com/smallbiznis/coursemart/internal/purchase/domain"
	"github.com/smallbiznis/coursemart/internal/purchase/repository"
	"github.com/smallbiznis/coursemart/internal/purchase/service"
	"github.com/smallbiznis/coursemart/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(limiter *ratelimit.CommerceLimiter) domain.VerificationLock { return limiter }),
	fx.Provide(
		fx.Annotate(
			service.New,
			fx.As(new(domain.Service)),
			fx.As(new(paymentdomain.CheckoutSettler)),
		),
	),
)
