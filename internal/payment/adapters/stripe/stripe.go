package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	providerName        = "stripe"
	metadataOrderRefKey = "order_reference"
	metadataPayerKey    = "payer_id"
)

// zeroDecimal lists the currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

type Factory struct {
	backend stripego.Backend
}

func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryWithBackend pins the API backend, which lets tests point the
// adapter at a local server.
func NewFactoryWithBackend(backend stripego.Backend) *Factory {
	return &Factory{backend: backend}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secretKey, _ := readString(cfg.Config, "secret_key")
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	webhookSecret, _ := readString(cfg.Config, "webhook_secret")

	backend := f.backend
	if backend == nil {
		backend = stripego.GetBackend(stripego.APIBackend)
	}

	return &Adapter{
		intents:       paymentintent.Client{B: backend, Key: secretKey},
		webhookSecret: strings.TrimSpace(webhookSecret),
	}, nil
}

type Adapter struct {
	intents       paymentintent.Client
	webhookSecret string
}

func (a *Adapter) Provider() string {
	return providerName
}

func (a *Adapter) CreateCharge(ctx context.Context, req paymentdomain.ChargeRequest) (paymentdomain.Charge, error) {
	if req.Amount <= 0 {
		return paymentdomain.Charge{}, paymentdomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return paymentdomain.Charge{}, paymentdomain.ErrInvalidCurrency
	}
	if strings.TrimSpace(req.OrderReference) == "" {
		return paymentdomain.Charge{}, paymentdomain.ErrInvalidOrderReference
	}

	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(toMinorUnits(req.Amount, currency)),
		Currency: stripego.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.IdempotencyKey = stripego.String(req.OrderReference)
	params.AddMetadata(metadataOrderRefKey, req.OrderReference)
	if req.PayerIdentity != "" {
		params.AddMetadata(metadataPayerKey, req.PayerIdentity)
	}

	intent, err := a.intents.New(params)
	if err != nil {
		return paymentdomain.Charge{}, err
	}
	return paymentdomain.Charge{
		PaymentID:    intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intentStatus(intent),
	}, nil
}

func (a *Adapter) LookupPayment(ctx context.Context, paymentID string) (paymentdomain.PaymentLookup, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return paymentdomain.PaymentLookup{}, paymentdomain.ErrPaymentNotFound
	}

	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	intent, err := a.intents.Get(paymentID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return paymentdomain.PaymentLookup{}, paymentdomain.ErrPaymentNotFound
		}
		return paymentdomain.PaymentLookup{}, err
	}
	return lookupFromIntent(intent), nil
}

// Verify checks the Stripe-Signature header and maps the event onto a
// canonical PaymentEvent. Unhandled event types return ErrEventIgnored.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.PaymentEvent, error) {
	if a.webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return nil, paymentdomain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, paymentdomain.ErrInvalidSignature
	}
	return parseEvent(event, payload)
}

func parseEvent(event stripego.Event, payload []byte) (*paymentdomain.PaymentEvent, error) {
	if strings.TrimSpace(event.ID) == "" || event.Data == nil {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return parsePaymentIntent(event, payload, paymentdomain.EventTypePaymentSucceeded)
	case "payment_intent.canceled":
		return parsePaymentIntent(event, payload, paymentdomain.EventTypePaymentCancelled)
	case "payment_intent.payment_failed":
		return parsePaymentIntent(event, payload, paymentdomain.EventTypePaymentFailed)
	case "charge.refunded":
		return parseRefund(event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func parsePaymentIntent(event stripego.Event, payload []byte, eventType string) (*paymentdomain.PaymentEvent, error) {
	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if intent.ID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	lookup := lookupFromIntent(&intent)
	return &paymentdomain.PaymentEvent{
		Provider:          providerName,
		ProviderEventID:   event.ID,
		ProviderPaymentID: intent.ID,
		Type:              eventType,
		OrderReference:    lookup.OrderReference,
		Amount:            lookup.Amount,
		Currency:          lookup.Currency,
		FailureCode:       lookup.FailureCode,
		FailureMessage:    lookup.FailureMessage,
		OccurredAt:        timestamp(intent.Created, event.Created),
		RawPayload:        payload,
	}, nil
}

func parseRefund(event stripego.Event, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var charge stripego.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	// Partial refunds keep the purchase active.
	if !charge.Refunded {
		return nil, paymentdomain.ErrEventIgnored
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	currency := strings.ToUpper(string(charge.Currency))
	return &paymentdomain.PaymentEvent{
		Provider:          providerName,
		ProviderEventID:   event.ID,
		ProviderPaymentID: charge.PaymentIntent.ID,
		Type:              paymentdomain.EventTypeRefunded,
		OrderReference:    strings.TrimSpace(charge.Metadata[metadataOrderRefKey]),
		Amount:            fromMinorUnits(charge.AmountRefunded, currency),
		Currency:          currency,
		OccurredAt:        timestamp(charge.Created, event.Created),
		RawPayload:        payload,
	}, nil
}

func lookupFromIntent(intent *stripego.PaymentIntent) paymentdomain.PaymentLookup {
	currency := strings.ToUpper(string(intent.Currency))
	lookup := paymentdomain.PaymentLookup{
		PaymentID:      intent.ID,
		Status:         intentStatus(intent),
		Amount:         fromMinorUnits(intent.Amount, currency),
		Currency:       currency,
		OrderReference: strings.TrimSpace(intent.Metadata[metadataOrderRefKey]),
	}
	if intent.LastPaymentError != nil {
		lookup.FailureCode = string(intent.LastPaymentError.Code)
		if intent.LastPaymentError.DeclineCode != "" {
			lookup.FailureCode = string(intent.LastPaymentError.DeclineCode)
		}
		lookup.FailureMessage = intent.LastPaymentError.Msg
	}
	return lookup
}

func intentStatus(intent *stripego.PaymentIntent) paymentdomain.PaymentStatus {
	switch intent.Status {
	case stripego.PaymentIntentStatusSucceeded:
		return paymentdomain.PaymentStatusSucceeded
	case stripego.PaymentIntentStatusCanceled:
		return paymentdomain.PaymentStatusCanceled
	case stripego.PaymentIntentStatusRequiresPaymentMethod:
		// A PaymentIntent falls back here after a declined attempt.
		if intent.LastPaymentError != nil {
			return paymentdomain.PaymentStatusFailed
		}
		return paymentdomain.PaymentStatusPending
	default:
		return paymentdomain.PaymentStatusPending
	}
}

func toMinorUnits(amount int64, currency string) int64 {
	if zeroDecimal[currency] {
		return amount
	}
	return amount * 100
}

func fromMinorUnits(amount int64, currency string) int64 {
	if zeroDecimal[currency] {
		return amount
	}
	return amount / 100
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	switch cast := value.(type) {
	case string:
		return cast, true
	default:
		return "", false
	}
}
