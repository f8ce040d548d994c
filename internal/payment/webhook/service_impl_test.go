package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/smallbiznis/coursemart/internal/payment/adapters"
	stripeadapter "github.com/smallbiznis/coursemart/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/coursemart/internal/payment/repository"
	paymentservice "github.com/smallbiznis/coursemart/internal/payment/service"
	"github.com/smallbiznis/coursemart/internal/payment/webhook"
	"github.com/smallbiznis/coursemart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_webhook_test"

type recordingSettler struct {
	verified []string
	outcomes []string
	refunds  []string
}

func (r *recordingSettler) OrderReferenceForPayment(ctx context.Context, paymentID string) (string, error) {
	return "", nil
}

func (r *recordingSettler) SettleVerified(ctx context.Context, orderReference string) error {
	r.verified = append(r.verified, orderReference)
	return nil
}

func (r *recordingSettler) SettleGatewayOutcome(ctx context.Context, orderReference, outcome, code, message string) error {
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

func (r *recordingSettler) HandleRefund(ctx context.Context, orderReference string) error {
	r.refunds = append(r.refunds, orderReference)
	return nil
}

func newWebhookService(t *testing.T) (paymentdomain.Service, *recordingSettler) {
	t.Helper()

	registry := adapters.NewRegistry(stripeadapter.NewFactory())
	adapter, err := adapters.NewConfiguredAdapter(registry, config.Config{Payment: config.PaymentConfig{
		Provider:      "stripe",
		SecretKey:     "sk_test_webhook",
		WebhookSecret: webhookSecret,
	}})
	require.NoError(t, err)

	settler := &recordingSettler{}
	payments := paymentservice.NewService(paymentservice.Params{
		DB:      testutil.NewDB(t),
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t, 12),
		Repo:    paymentrepo.Provide(),
		Settler: settler,
	})

	svc := webhook.NewService(webhook.Params{
		Log:        zap.NewNop(),
		PaymentSvc: payments,
		Adapters:   registry,
		Adapter:    adapter,
	})
	return svc, settler
}

func stripeEvent(t *testing.T, id, eventType string, object map[string]any) ([]byte, http.Header) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   id,
		"type": eventType,
		"data": map[string]any{"object": object},
	})
	require.NoError(t, err)

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	headers := http.Header{}
	headers.Set("Stripe-Signature", signed.Header)
	return payload, headers
}

func succeededIntent(ref string) map[string]any {
	return map[string]any{
		"id": "pi_hook", "object": "payment_intent", "status": "succeeded",
		"amount": 30000, "currency": "krw",
		"metadata": map[string]any{"order_reference": ref},
	}
}

func TestIngestWebhookSettlesOncePerEvent(t *testing.T) {
	ctx := context.Background()
	svc, settler := newWebhookService(t)
	payload, headers := stripeEvent(t, "evt_hook_1", "payment_intent.succeeded", succeededIntent("ref-hook"))

	require.NoError(t, svc.IngestWebhook(ctx, "stripe", payload, headers))
	assert.Equal(t, []string{"ref-hook"}, settler.verified)

	err := svc.IngestWebhook(ctx, "Stripe", payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)
	assert.Len(t, settler.verified, 1)
}

func TestIngestWebhookRecordsGatewayOutcomes(t *testing.T) {
	ctx := context.Background()
	svc, settler := newWebhookService(t)

	canceled := succeededIntent("ref-cancel")
	canceled["status"] = "canceled"
	payload, headers := stripeEvent(t, "evt_hook_2", "payment_intent.canceled", canceled)
	require.NoError(t, svc.IngestWebhook(ctx, "stripe", payload, headers))

	assert.Empty(t, settler.verified)
	assert.Len(t, settler.outcomes, 1)
}

func TestIngestWebhookAcknowledgesIgnoredTypes(t *testing.T) {
	svc, settler := newWebhookService(t)
	payload, headers := stripeEvent(t, "evt_hook_3", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	require.NoError(t, svc.IngestWebhook(context.Background(), "stripe", payload, headers))
	assert.Empty(t, settler.verified)
	assert.Empty(t, settler.outcomes)
}

func TestIngestWebhookRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, settler := newWebhookService(t)
	payload, headers := stripeEvent(t, "evt_hook_4", "payment_intent.succeeded", succeededIntent("ref-bad"))

	assert.ErrorIs(t, svc.IngestWebhook(ctx, "", payload, headers), paymentdomain.ErrInvalidProvider)
	assert.ErrorIs(t, svc.IngestWebhook(ctx, "paypal", payload, headers), paymentdomain.ErrProviderNotFound)
	assert.ErrorIs(t, svc.IngestWebhook(ctx, "stripe", []byte("not json"), headers), paymentdomain.ErrInvalidPayload)

	forged := http.Header{}
	forged.Set("Stripe-Signature", "t=1,v1=deadbeef")
	assert.ErrorIs(t, svc.IngestWebhook(ctx, "stripe", payload, forged), paymentdomain.ErrInvalidSignature)

	assert.Empty(t, settler.verified)
}
