package domain

import (
	"context"
	"net/http"
)

// PaymentStatus is the gateway-neutral state of a charge.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type ChargeRequest struct {
	Amount         int64
	Currency       string
	OrderReference string
	PayerIdentity  string
}

type Charge struct {
	PaymentID    string
	ClientSecret string
	Status       PaymentStatus
}

// PaymentLookup is what the gateway reports about a payment when queried
// directly. Verification trusts only this, never a client or webhook payload.
type PaymentLookup struct {
	PaymentID      string
	Status         PaymentStatus
	Amount         int64
	Currency       string
	OrderReference string
	FailureCode    string
	FailureMessage string
}

// Gateway creates and inspects charges. CreateCharge must be idempotent on
// the order reference.
type Gateway interface {
	Provider() string
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	LookupPayment(ctx context.Context, paymentID string) (PaymentLookup, error)
}

type PaymentAdapter interface {
	Gateway
	Verify(ctx context.Context, payload []byte, headers http.Header) (*PaymentEvent, error)
}

type AdapterConfig struct {
	Provider string
	Config   map[string]any
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
