package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/coursemart/internal/clock"
	"github.com/smallbiznis/coursemart/internal/config"
	obsmetrics "github.com/smallbiznis/coursemart/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	"github.com/smallbiznis/coursemart/internal/purchase/domain"
	"github.com/smallbiznis/coursemart/internal/session"
	"github.com/smallbiznis/coursemart/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// staleVerification is how long an attempt may sit in verifying before
// another verifier may take it over.
const staleVerification = 2 * time.Minute

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Gateway    paymentdomain.Gateway
	Commerce   *config.CommerceConfigHolder `optional:"true"`
	Lock       domain.VerificationLock      `optional:"true"`
	Clock      clock.Clock                  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	gateway  paymentdomain.Gateway
	commerce *config.CommerceConfigHolder
	lock     domain.VerificationLock
	clock    clock.Clock
	metrics  *obsmetrics.Metrics
}

func New(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("purchase.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		gateway:  p.Gateway,
		commerce: p.Commerce,
		lock:     p.Lock,
		clock:    clk,
		metrics:  p.ObsMetrics,
	}
}

// ToggleCart flips cart membership for the viewer and returns the new state.
// Concurrent toggles are settled by the unique (account, course) index.
// Removing an item never depends on the course: a cart row whose course was
// unpublished or bought elsewhere can always be toggled off.
func (s *Service) ToggleCart(ctx context.Context, courseID string) (domain.CartToggleResult, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.CartToggleResult{}, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(courseID))
	if err != nil {
		return domain.CartToggleResult{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindCartItem(ctx, s.db, viewer.AccountID, id)
	if err != nil {
		return domain.CartToggleResult{}, err
	}
	if existing != nil {
		if _, err := s.repo.DeleteCartItem(ctx, s.db, viewer.AccountID, id); err != nil {
			return domain.CartToggleResult{}, err
		}
		return domain.CartToggleResult{InCart: false}, nil
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return domain.CartToggleResult{}, err
	}
	owned, err := s.repo.FindActivePurchase(ctx, s.db, viewer.AccountID, course.ID)
	if err != nil {
		return domain.CartToggleResult{}, err
	}
	if owned != nil {
		return domain.CartToggleResult{}, domain.ErrAlreadyOwned
	}

	item := &domain.CartItem{
		ID:        s.genID.Generate(),
		AccountID: viewer.AccountID,
		CourseID:  course.ID,
		CreatedAt: s.clock.Now().UTC(),
	}
	inserted, err := s.repo.InsertCartItem(ctx, s.db, item)
	if err != nil {
		return domain.CartToggleResult{}, err
	}
	if !inserted {
		item, err = s.repo.FindCartItem(ctx, s.db, viewer.AccountID, course.ID)
		if err != nil {
			return domain.CartToggleResult{}, err
		}
	}
	return domain.CartToggleResult{InCart: true, Item: item}, nil
}

func (s *Service) ListCart(ctx context.Context) ([]domain.CartEntry, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCart(ctx, s.db, viewer.AccountID)
}

// FreeEnroll grants a price-zero published course. A second enrollment for
// the same pair returns ConflictError carrying the existing purchase.
func (s *Service) FreeEnroll(ctx context.Context, courseID string) (domain.Purchase, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if course.Price != 0 {
		return domain.Purchase{}, domain.ErrNotFreeCourse
	}

	now := s.clock.Now().UTC()
	purchase := domain.Purchase{
		ID:            s.genID.Generate(),
		AccountID:     viewer.AccountID,
		CourseID:      course.ID,
		CreatorID:     course.CreatorID,
		Amount:        0,
		Currency:      course.Currency,
		CommissionBPS: s.commerce.Get().CommissionBPS,
		Status:        domain.PurchaseStatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var conflict *domain.ConflictError
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindActivePurchase(ctx, tx, viewer.AccountID, course.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			conflict = &domain.ConflictError{Reason: domain.ReasonAlreadyEnrolled, Existing: existing}
			return nil
		}
		if err := s.repo.InsertPurchase(ctx, tx, &purchase); err != nil {
			return err
		}
		_, err = s.repo.DeleteCartItem(ctx, tx, viewer.AccountID, course.ID)
		return err
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Purchase{}, err
		}
		existing, findErr := s.repo.FindActivePurchase(ctx, s.db, viewer.AccountID, course.ID)
		if findErr != nil {
			return domain.Purchase{}, findErr
		}
		conflict = &domain.ConflictError{Reason: domain.ReasonAlreadyEnrolled, Existing: existing}
	}
	if conflict != nil {
		return domain.Purchase{}, conflict
	}

	s.metrics.RecordCheckoutOutcome(ctx, "free_enrolled")
	s.log.Info("free enrollment",
		zap.String("account_id", viewer.AccountID.String()),
		zap.String("course_id", course.ID.String()),
	)
	return purchase, nil
}

// InitiateCheckout snapshots the price, opens a charge at the gateway and
// records the attempt. It never creates a purchase.
func (s *Service) InitiateCheckout(ctx context.Context, courseID string) (domain.CheckoutSession, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if course.Price == 0 {
		return domain.CheckoutSession{}, domain.ErrFreeCourse
	}
	owned, err := s.repo.FindActivePurchase(ctx, s.db, viewer.AccountID, course.ID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if owned != nil {
		return domain.CheckoutSession{}, domain.ErrAlreadyOwned
	}

	now := s.clock.Now().UTC()
	orderReference := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	charge, err := s.gateway.CreateCharge(ctx, paymentdomain.ChargeRequest{
		Amount:         course.Price,
		Currency:       course.Currency,
		OrderReference: orderReference,
		PayerIdentity:  viewer.AccountID.String(),
	})
	if err != nil {
		s.log.Warn("gateway charge creation failed",
			zap.String("order_reference", orderReference),
			zap.String("course_id", course.ID.String()),
			zap.Error(err),
		)
		return domain.CheckoutSession{}, errors.Join(domain.ErrGatewayUnavailable, err)
	}

	paymentID := charge.PaymentID
	attempt := domain.CheckoutAttempt{
		ID:               s.genID.Generate(),
		OrderReference:   orderReference,
		AccountID:        viewer.AccountID,
		CourseID:         course.ID,
		Amount:           course.Price,
		Currency:         course.Currency,
		Provider:         s.gateway.Provider(),
		GatewayPaymentID: &paymentID,
		Status:           domain.CheckoutStatusInitiated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertAttempt(ctx, s.db, &attempt); err != nil {
		return domain.CheckoutSession{}, err
	}

	s.metrics.RecordCheckoutOutcome(ctx, "initiated")
	return domain.CheckoutSession{
		OrderReference: orderReference,
		ClientSecret:   charge.ClientSecret,
		Provider:       attempt.Provider,
		Amount:         attempt.Amount,
		Currency:       attempt.Currency,
		Status:         attempt.Status,
	}, nil
}

// ReportGatewayOutcome records what the client saw from the payment widget.
// Cancel and failure come back as distinct errors so the caller can tell
// them apart.
func (s *Service) ReportGatewayOutcome(ctx context.Context, orderReference string, outcome string, code string, message string) (domain.CheckoutAttempt, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.CheckoutAttempt{}, err
	}
	parsed, ok := domain.ParseGatewayOutcome(strings.ToLower(strings.TrimSpace(outcome)))
	if !ok {
		return domain.CheckoutAttempt{}, domain.ErrInvalidOutcome
	}
	attempt, err := s.viewerAttempt(ctx, viewer, orderReference, nil)
	if err != nil {
		return domain.CheckoutAttempt{}, err
	}

	updated, err := s.applyOutcome(ctx, attempt, parsed, code, message)
	if err != nil {
		return domain.CheckoutAttempt{}, err
	}
	if !updated {
		return *attempt, domain.ErrCheckoutClosed
	}

	attempt, err = s.repo.FindAttempt(ctx, s.db, attempt.OrderReference)
	if err != nil {
		return domain.CheckoutAttempt{}, err
	}
	switch parsed {
	case domain.OutcomeCancelled:
		return *attempt, &domain.PaymentCancelledError{OrderReference: attempt.OrderReference}
	case domain.OutcomeFailed:
		return *attempt, &domain.PaymentFailedError{OrderReference: attempt.OrderReference, Code: code, Message: message}
	default:
		return *attempt, nil
	}
}

func (s *Service) applyOutcome(ctx context.Context, attempt *domain.CheckoutAttempt, outcome domain.GatewayOutcome, code, message string) (bool, error) {
	update := domain.AttemptUpdate{UpdatedAt: s.clock.Now().UTC()}
	var to domain.CheckoutStatus
	switch outcome {
	case domain.OutcomeCancelled:
		to = domain.CheckoutStatusGatewayCancelled
		s.metrics.RecordCheckoutOutcome(ctx, "cancelled")
	case domain.OutcomeFailed:
		to = domain.CheckoutStatusGatewayFailed
		update.FailureCode = optionalString(code)
		update.FailureMessage = optionalString(message)
		s.metrics.RecordCheckoutOutcome(ctx, "failed")
	default:
		to = domain.CheckoutStatusGatewaySucceeded
	}
	return s.repo.TransitionAttempt(ctx, s.db, attempt.OrderReference, domain.OutcomeStatuses, to, update)
}

// VerifyPaidPurchase is the only way a paid purchase is created. The
// gateway is queried directly; nothing the client reported is trusted.
func (s *Service) VerifyPaidPurchase(ctx context.Context, orderReference string, courseID string) (domain.Purchase, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(courseID))
	if err != nil {
		return domain.Purchase{}, domain.ErrCheckoutNotFound
	}
	attempt, err := s.viewerAttempt(ctx, viewer, orderReference, &id)
	if err != nil {
		return domain.Purchase{}, err
	}
	return s.verify(ctx, attempt)
}

func (s *Service) verify(ctx context.Context, attempt *domain.CheckoutAttempt) (domain.Purchase, error) {
	ref := attempt.OrderReference
	if attempt.Status == domain.CheckoutStatusVerified {
		return s.verifiedPurchase(ctx, attempt)
	}

	if s.lock != nil {
		token, ok := s.lock.TryLockVerification(ctx, ref)
		if !ok {
			return domain.Purchase{}, &domain.VerificationFailedError{OrderReference: ref, Reason: domain.ReasonVerificationInProgress}
		}
		defer s.lock.ReleaseVerification(context.WithoutCancel(ctx), ref, token)
	}

	claimed, err := s.claim(ctx, ref)
	if err != nil {
		return domain.Purchase{}, err
	}
	if !claimed {
		current, err := s.repo.FindAttempt(ctx, s.db, ref)
		if err != nil {
			return domain.Purchase{}, err
		}
		if current != nil && current.Status == domain.CheckoutStatusVerified {
			return s.verifiedPurchase(ctx, current)
		}
		return domain.Purchase{}, &domain.VerificationFailedError{OrderReference: ref, Reason: domain.ReasonVerificationInProgress}
	}

	if attempt.GatewayPaymentID == nil || *attempt.GatewayPaymentID == "" {
		return domain.Purchase{}, s.failVerification(ctx, ref, domain.ReasonMissingPayment, nil)
	}
	lookup, err := s.gateway.LookupPayment(ctx, *attempt.GatewayPaymentID)
	if err != nil {
		return domain.Purchase{}, s.failVerification(ctx, ref, domain.ReasonGatewayUnreachable, err)
	}

	switch lookup.Status {
	case paymentdomain.PaymentStatusCanceled:
		if err := s.release(ctx, ref, domain.CheckoutStatusGatewayCancelled, lookup.FailureCode, lookup.FailureMessage); err != nil {
			return domain.Purchase{}, err
		}
		s.metrics.RecordCheckoutOutcome(ctx, "cancelled")
		return domain.Purchase{}, &domain.PaymentCancelledError{OrderReference: ref}
	case paymentdomain.PaymentStatusFailed:
		if err := s.release(ctx, ref, domain.CheckoutStatusGatewayFailed, lookup.FailureCode, lookup.FailureMessage); err != nil {
			return domain.Purchase{}, err
		}
		s.metrics.RecordCheckoutOutcome(ctx, "failed")
		return domain.Purchase{}, &domain.PaymentFailedError{OrderReference: ref, Code: lookup.FailureCode, Message: lookup.FailureMessage}
	case paymentdomain.PaymentStatusSucceeded:
	default:
		return domain.Purchase{}, s.failVerification(ctx, ref, domain.ReasonPaymentPending, nil)
	}

	if lookup.OrderReference != ref {
		return domain.Purchase{}, s.failVerification(ctx, ref, domain.ReasonReferenceMismatch, nil)
	}
	if lookup.Amount != attempt.Amount || !strings.EqualFold(lookup.Currency, attempt.Currency) {
		return domain.Purchase{}, s.failVerification(ctx, ref, domain.ReasonAmountMismatch, nil)
	}

	return s.recordPaidPurchase(ctx, attempt)
}

func (s *Service) claim(ctx context.Context, ref string) (bool, error) {
	now := s.clock.Now().UTC()
	claimed, err := s.repo.TransitionAttempt(ctx, s.db, ref, domain.VerifiableStatuses, domain.CheckoutStatusVerifying, domain.AttemptUpdate{UpdatedAt: now})
	if err != nil || claimed {
		return claimed, err
	}
	return s.repo.ReclaimStaleAttempt(ctx, s.db, ref, now.Add(-staleVerification), now)
}

func (s *Service) recordPaidPurchase(ctx context.Context, attempt *domain.CheckoutAttempt) (domain.Purchase, error) {
	course, err := s.repo.FindCourse(ctx, s.db, attempt.CourseID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if course == nil {
		return domain.Purchase{}, s.failVerification(ctx, attempt.OrderReference, "course_missing", nil)
	}

	now := s.clock.Now().UTC()
	ref := attempt.OrderReference
	purchase := domain.Purchase{
		ID:               s.genID.Generate(),
		AccountID:        attempt.AccountID,
		CourseID:         attempt.CourseID,
		CreatorID:        course.CreatorID,
		Amount:           attempt.Amount,
		Currency:         attempt.Currency,
		CommissionBPS:    s.commerce.Get().CommissionBPS,
		Status:           domain.PurchaseStatusCompleted,
		OrderReference:   &ref,
		GatewayPaymentID: attempt.GatewayPaymentID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertPurchase(ctx, tx, &purchase); err != nil {
			return err
		}
		if _, err := s.repo.TransitionAttempt(ctx, tx, ref,
			[]domain.CheckoutStatus{domain.CheckoutStatusVerifying},
			domain.CheckoutStatusVerified,
			domain.AttemptUpdate{PurchaseID: &purchase.ID, UpdatedAt: now},
		); err != nil {
			return err
		}
		_, err := s.repo.DeleteCartItem(ctx, tx, attempt.AccountID, attempt.CourseID)
		return err
	})
	if err == nil {
		s.metrics.RecordCheckoutOutcome(ctx, "verified")
		s.log.Info("paid purchase verified",
			zap.String("order_reference", ref),
			zap.String("account_id", attempt.AccountID.String()),
			zap.String("course_id", attempt.CourseID.String()),
		)
		return purchase, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return domain.Purchase{}, err
	}

	// Same order reference: an earlier verification already won.
	existing, findErr := s.repo.FindPurchaseByOrderReference(ctx, s.db, ref)
	if findErr != nil {
		return domain.Purchase{}, findErr
	}
	if existing != nil {
		if _, err := s.repo.TransitionAttempt(ctx, s.db, ref,
			[]domain.CheckoutStatus{domain.CheckoutStatusVerifying},
			domain.CheckoutStatusVerified,
			domain.AttemptUpdate{PurchaseID: &existing.ID, UpdatedAt: now},
		); err != nil {
			return domain.Purchase{}, err
		}
		return *existing, nil
	}

	// Another checkout for the same course already produced a purchase.
	code := domain.ReasonAlreadyOwned
	if _, err := s.repo.TransitionAttempt(ctx, s.db, ref,
		[]domain.CheckoutStatus{domain.CheckoutStatusVerifying},
		domain.CheckoutStatusVerificationFailed,
		domain.AttemptUpdate{FailureCode: &code, UpdatedAt: now},
	); err != nil {
		return domain.Purchase{}, err
	}
	owned, findErr := s.repo.FindActivePurchase(ctx, s.db, attempt.AccountID, attempt.CourseID)
	if findErr != nil {
		return domain.Purchase{}, findErr
	}
	s.metrics.RecordCheckoutOutcome(ctx, "conflict")
	s.log.Warn("paid checkout for an owned course",
		zap.String("order_reference", ref),
		zap.String("account_id", attempt.AccountID.String()),
		zap.String("course_id", attempt.CourseID.String()),
	)
	return domain.Purchase{}, &domain.ConflictError{Reason: domain.ReasonAlreadyOwned, Existing: owned}
}

func (s *Service) failVerification(ctx context.Context, ref string, reason string, cause error) error {
	if err := s.release(ctx, ref, domain.CheckoutStatusVerificationFailed, reason, errorMessage(cause)); err != nil {
		return err
	}
	s.metrics.RecordCheckoutOutcome(ctx, "verification_failed")
	s.log.Warn("payment verification failed",
		zap.String("order_reference", ref),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	return &domain.VerificationFailedError{OrderReference: ref, Reason: reason, Cause: cause}
}

// release moves a claimed attempt out of verifying.
func (s *Service) release(ctx context.Context, ref string, to domain.CheckoutStatus, code, message string) error {
	_, err := s.repo.TransitionAttempt(ctx, s.db, ref,
		[]domain.CheckoutStatus{domain.CheckoutStatusVerifying},
		to,
		domain.AttemptUpdate{
			FailureCode:    optionalString(code),
			FailureMessage: optionalString(message),
			UpdatedAt:      s.clock.Now().UTC(),
		},
	)
	return err
}

func (s *Service) verifiedPurchase(ctx context.Context, attempt *domain.CheckoutAttempt) (domain.Purchase, error) {
	var (
		purchase *domain.Purchase
		err      error
	)
	if attempt.PurchaseID != nil {
		purchase, err = s.repo.FindPurchase(ctx, s.db, *attempt.PurchaseID)
	} else {
		purchase, err = s.repo.FindPurchaseByOrderReference(ctx, s.db, attempt.OrderReference)
	}
	if err != nil {
		return domain.Purchase{}, err
	}
	if purchase == nil {
		return domain.Purchase{}, domain.ErrCheckoutNotFound
	}
	return *purchase, nil
}

// HandleRefund revokes the purchase created for an order reference. The
// next entitlement resolution sees the refund.
func (s *Service) HandleRefund(ctx context.Context, orderReference string) error {
	orderReference = strings.TrimSpace(orderReference)
	if orderReference == "" {
		return domain.ErrCheckoutNotFound
	}
	refunded, err := s.repo.MarkRefunded(ctx, s.db, orderReference, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !refunded {
		s.log.Info("refund for unknown or already refunded purchase", zap.String("order_reference", orderReference))
		return nil
	}
	s.metrics.RecordCheckoutOutcome(ctx, "refunded")
	s.log.Info("purchase refunded", zap.String("order_reference", orderReference))
	return nil
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.LibraryEntry, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLibrary(ctx, s.db, viewer.AccountID)
}

func (s *Service) OrderReferenceForPayment(ctx context.Context, paymentID string) (string, error) {
	attempt, err := s.repo.FindAttemptByPaymentID(ctx, s.db, paymentID)
	if err != nil || attempt == nil {
		return "", err
	}
	return attempt.OrderReference, nil
}

// SettleVerified runs server-side verification for a gateway success
// notification. Only errors worth a redelivery are returned.
func (s *Service) SettleVerified(ctx context.Context, orderReference string) error {
	attempt, err := s.repo.FindAttempt(ctx, s.db, orderReference)
	if err != nil {
		return err
	}
	if attempt == nil {
		s.log.Warn("gateway success for unknown checkout", zap.String("order_reference", orderReference))
		return nil
	}

	_, err = s.verify(ctx, attempt)
	if err == nil {
		return nil
	}
	var (
		conflict  *domain.ConflictError
		cancelled *domain.PaymentCancelledError
		failed    *domain.PaymentFailedError
		verifyErr *domain.VerificationFailedError
	)
	switch {
	case errors.As(err, &conflict), errors.As(err, &cancelled), errors.As(err, &failed):
		return nil
	case errors.As(err, &verifyErr) && verifyErr.Reason == domain.ReasonVerificationInProgress:
		return nil
	default:
		return err
	}
}

// SettleGatewayOutcome applies a gateway cancel or failure notification.
func (s *Service) SettleGatewayOutcome(ctx context.Context, orderReference string, outcome string, code string, message string) error {
	parsed, ok := domain.ParseGatewayOutcome(outcome)
	if !ok {
		return domain.ErrInvalidOutcome
	}
	attempt, err := s.repo.FindAttempt(ctx, s.db, orderReference)
	if err != nil {
		return err
	}
	if attempt == nil {
		s.log.Warn("gateway outcome for unknown checkout", zap.String("order_reference", orderReference))
		return nil
	}
	_, err = s.applyOutcome(ctx, attempt, parsed, code, message)
	return err
}

func (s *Service) viewerAttempt(ctx context.Context, viewer session.Viewer, orderReference string, courseID *snowflake.ID) (*domain.CheckoutAttempt, error) {
	orderReference = strings.TrimSpace(orderReference)
	if orderReference == "" {
		return nil, domain.ErrCheckoutNotFound
	}
	attempt, err := s.repo.FindAttempt(ctx, s.db, orderReference)
	if err != nil {
		return nil, err
	}
	if attempt == nil || attempt.AccountID != viewer.AccountID {
		return nil, domain.ErrCheckoutNotFound
	}
	if courseID != nil && attempt.CourseID != *courseID {
		return nil, domain.ErrCheckoutNotFound
	}
	return attempt, nil
}

func (s *Service) loadCourse(ctx context.Context, courseID string) (*domain.CourseRef, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(courseID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	course, err := s.repo.FindCourse(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if course == nil || !course.Published {
		return nil, domain.ErrCourseNotFound
	}
	return course, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
