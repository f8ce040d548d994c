package domain

import (
	"context"
	"net/http"
)

type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

// CheckoutSettler applies gateway notifications to checkout state. It is
// implemented by the purchase service. Implementations return an error only
// when the notification should be redelivered.
type CheckoutSettler interface {
	OrderReferenceForPayment(ctx context.Context, paymentID string) (string, error)
	SettleVerified(ctx context.Context, orderReference string) error
	SettleGatewayOutcome(ctx context.Context, orderReference string, outcome string, code string, message string) error
	HandleRefund(ctx context.Context, orderReference string) error
}
