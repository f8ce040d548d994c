package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/clock"
	obsmetrics "github.com/smallbiznis/coursemart/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	Settler    paymentdomain.CheckoutSettler
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	settler    paymentdomain.CheckoutSettler
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		settler:    p.Settler,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

// ProcessEvent stores a verified gateway event once and applies it to the
// matching checkout. An event is marked processed only after it has been
// applied, so a failed application is retried on redelivery.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if !json.Valid(event.RawPayload) {
		return paymentdomain.ErrInvalidPayload
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	if event.OrderReference == "" && event.ProviderPaymentID != "" {
		ref, err := s.settler.OrderReferenceForPayment(ctx, event.ProviderPaymentID)
		if err != nil {
			return err
		}
		event.OrderReference = ref
	}

	now := s.clock.Now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
	}
	if event.OrderReference != "" {
		ref := event.OrderReference
		received.OrderReference = &ref
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.applyEvent(ctx, event); err != nil {
		s.log.Warn("payment event not applied",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	if inserted {
		s.obsMetrics.RecordPaymentEvent(ctx, event.Provider, event.Type)
	}
	return nil
}

func validateEvent(event *paymentdomain.PaymentEvent) error {
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	event.Type = strings.TrimSpace(event.Type)
	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded,
		paymentdomain.EventTypePaymentCancelled,
		paymentdomain.EventTypePaymentFailed,
		paymentdomain.EventTypeRefunded:
	default:
		return paymentdomain.ErrInvalidEvent
	}
	event.OrderReference = strings.TrimSpace(event.OrderReference)
	event.Currency = strings.ToUpper(strings.TrimSpace(event.Currency))
	return nil
}

func (s *Service) applyEvent(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.OrderReference == "" {
		// Payments created outside the checkout flow have nothing to settle.
		s.log.Info("payment event without checkout",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("provider_payment_id", event.ProviderPaymentID),
		)
		return nil
	}

	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		refunded, err := s.refundApplied(ctx, event.OrderReference)
		if err != nil {
			return err
		}
		if refunded {
			// A success delivered after its refund must not grant the course again.
			s.log.Info("payment success after refund ignored",
				zap.String("order_reference", event.OrderReference),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
		return s.settler.SettleVerified(ctx, event.OrderReference)
	case paymentdomain.EventTypePaymentCancelled:
		return s.settler.SettleGatewayOutcome(ctx, event.OrderReference, "cancelled", event.FailureCode, event.FailureMessage)
	case paymentdomain.EventTypePaymentFailed:
		return s.settler.SettleGatewayOutcome(ctx, event.OrderReference, "failed", event.FailureCode, event.FailureMessage)
	case paymentdomain.EventTypeRefunded:
		return s.settler.HandleRefund(ctx, event.OrderReference)
	default:
		return paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) refundApplied(ctx context.Context, orderReference string) (bool, error) {
	events, err := s.repo.ListEventsByOrderReference(ctx, s.db, orderReference)
	if err != nil {
		return false, err
	}
	for _, recorded := range events {
		if recorded.EventType == paymentdomain.EventTypeRefunded && recorded.ProcessedAt != nil {
			return true, nil
		}
	}
	return false, nil
}
