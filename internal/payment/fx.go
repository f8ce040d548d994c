package payment

import (
	"github.com/smallbiznis/coursemart/internal/payment/adapters"
	"github.com/smallbiznis/coursemart/internal/payment/adapters/stripe"
	"github.com/smallbiznis/coursemart/internal/payment/domain"
	"github.com/smallbiznis/coursemart/internal/payment/repository"
	paymentservice "github.com/smallbiznis/coursemart/internal/payment/service"
	"github.com/smallbiznis/coursemart/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(stripe.NewFactory())
	}),
	fx.Provide(adapters.NewConfiguredAdapter),
	fx.Provide(func(adapter domain.PaymentAdapter) domain.Gateway { return adapter }),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
