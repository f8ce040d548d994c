package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/config"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	"github.com/smallbiznis/coursemart/internal/purchase/domain"
	"github.com/smallbiznis/coursemart/internal/purchase/repository"
	"github.com/smallbiznis/coursemart/internal/session"
	"github.com/smallbiznis/coursemart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeCharge struct {
	req    paymentdomain.ChargeRequest
	status paymentdomain.PaymentStatus
	amount int64
}

type fakeGateway struct {
	mu        sync.Mutex
	charges   map[string]*fakeCharge
	lookupErr error
	lookups   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{charges: map[string]*fakeCharge{}}
}

func (g *fakeGateway) Provider() string { return "stripe" }

func (g *fakeGateway) CreateCharge(ctx context.Context, req paymentdomain.ChargeRequest) (paymentdomain.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("pi_%d", len(g.charges)+1)
	g.charges[id] = &fakeCharge{req: req, status: paymentdomain.PaymentStatusPending, amount: req.Amount}
	return paymentdomain.Charge{PaymentID: id, ClientSecret: id + "_secret", Status: paymentdomain.PaymentStatusPending}, nil
}

func (g *fakeGateway) LookupPayment(ctx context.Context, paymentID string) (paymentdomain.PaymentLookup, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	if g.lookupErr != nil {
		return paymentdomain.PaymentLookup{}, g.lookupErr
	}
	charge, ok := g.charges[paymentID]
	if !ok {
		return paymentdomain.PaymentLookup{}, paymentdomain.ErrPaymentNotFound
	}
	lookup := paymentdomain.PaymentLookup{
		PaymentID:      paymentID,
		Status:         charge.status,
		Amount:         charge.amount,
		Currency:       charge.req.Currency,
		OrderReference: charge.req.OrderReference,
	}
	if charge.status == paymentdomain.PaymentStatusFailed {
		lookup.FailureCode = "card_declined"
		lookup.FailureMessage = "declined"
	}
	return lookup, nil
}

// settle sets the gateway status of the charge opened for an order.
func (g *fakeGateway) settle(orderReference string, status paymentdomain.PaymentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, charge := range g.charges {
		if charge.req.OrderReference == orderReference {
			charge.status = status
		}
	}
}

func (g *fakeGateway) tamperAmount(orderReference string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, charge := range g.charges {
		if charge.req.OrderReference == orderReference {
			charge.amount = amount
		}
	}
}

type denyLock struct{}

func (denyLock) TryLockVerification(context.Context, string) (string, bool) { return "", false }
func (denyLock) ReleaseVerification(context.Context, string, string)        {}

// blindRepo hides existing purchases from the pre-insert check so the insert
// reaches the unique index, as it would under a concurrent request.
type blindRepo struct {
	domain.Repository
}

func (blindRepo) FindActivePurchase(context.Context, *gorm.DB, snowflake.ID, snowflake.ID) (*domain.Purchase, error) {
	return nil, nil
}

type harness struct {
	svc     *Service
	db      *gorm.DB
	node    *snowflake.Node
	gateway *fakeGateway
}

func newHarness(t *testing.T, opts ...func(*Params)) harness {
	t.Helper()
	db := testutil.NewDB(t)
	gateway := newFakeGateway()
	p := Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t, 2),
		Repo:    repository.Provide(),
		Gateway: gateway,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return harness{svc: New(p), db: db, node: testutil.NewNode(t, 3), gateway: gateway}
}

func (h harness) course(t *testing.T, price int64) testutil.CourseFixture {
	t.Helper()
	return testutil.SeedCourse(t, h.db, h.node, testutil.CourseSeed{
		Title: "Course", Price: price, Published: true, Chapters: 1, LessonsPerChapter: 2,
	})
}

func learner(id snowflake.ID) context.Context {
	return session.WithViewer(context.Background(), session.Viewer{AccountID: id, Role: session.RoleLearner})
}

func TestToggleCartParity(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 15000)
	ctx := learner(h.node.Generate())

	for n := 1; n <= 5; n++ {
		res, err := h.svc.ToggleCart(ctx, course.ID.String())
		require.NoError(t, err)
		assert.Equal(t, n%2 == 1, res.InCart, "toggle %d", n)
		if res.InCart {
			require.NotNil(t, res.Item)
			assert.Equal(t, course.ID, res.Item.CourseID)
		}
	}
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM cart_items WHERE course_id = ?`, 1, course.ID)
}

func TestToggleCartRequiresViewerAndRejectsOwned(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 0)

	_, err := h.svc.ToggleCart(context.Background(), course.ID.String())
	assert.ErrorIs(t, err, session.ErrAuthRequired)

	ctx := learner(h.node.Generate())
	_, err = h.svc.FreeEnroll(ctx, course.ID.String())
	require.NoError(t, err)

	_, err = h.svc.ToggleCart(ctx, course.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyOwned)
}

func TestUnpublishedCourseStaysRemovableFromCart(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 12000)
	ctx := learner(h.node.Generate())

	res, err := h.svc.ToggleCart(ctx, course.ID.String())
	require.NoError(t, err)
	require.True(t, res.InCart)

	require.NoError(t, h.db.Exec(`UPDATE courses SET published = FALSE WHERE id = ?`, course.ID).Error)

	entries, err := h.svc.ListCart(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Published)

	res, err = h.svc.ToggleCart(ctx, course.ID.String())
	require.NoError(t, err)
	assert.False(t, res.InCart)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM cart_items WHERE course_id = ?`, 0, course.ID)

	// Adding it back needs a published course.
	_, err = h.svc.ToggleCart(ctx, course.ID.String())
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	_, err = h.svc.ToggleCart(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestPurchasesRecordCommissionInForce(t *testing.T) {
	commerce := config.DefaultCommerceConfig()
	commerce.CommissionBPS = 2500
	h := newHarness(t, func(p *Params) {
		p.Commerce = config.NewStaticCommerceConfigHolder(commerce)
	})
	free := h.course(t, 0)
	paid := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	enrolled, err := h.svc.FreeEnroll(ctx, free.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), enrolled.CommissionBPS)

	checkout, err := h.svc.InitiateCheckout(ctx, paid.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)
	bought, err := h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, paid.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), bought.CommissionBPS)

	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE commission_bps = 2500`, 2)
}

func TestListCartSkipsOwnedCourses(t *testing.T) {
	h := newHarness(t)
	free := h.course(t, 0)
	paid := h.course(t, 9000)
	ctx := learner(h.node.Generate())

	_, err := h.svc.ToggleCart(ctx, free.ID.String())
	require.NoError(t, err)
	_, err = h.svc.ToggleCart(ctx, paid.ID.String())
	require.NoError(t, err)

	_, err = h.svc.FreeEnroll(ctx, free.ID.String())
	require.NoError(t, err)

	entries, err := h.svc.ListCart(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, paid.ID, entries[0].CourseID)
	assert.Equal(t, int64(9000), entries[0].Price)
}

func TestFreeEnrollIsIdempotent(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 0)
	account := h.node.Generate()
	ctx := learner(account)

	_, err := h.svc.ToggleCart(ctx, course.ID.String())
	require.NoError(t, err)

	purchase, err := h.svc.FreeEnroll(ctx, course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), purchase.Amount)
	assert.Equal(t, domain.PurchaseStatusCompleted, purchase.Status)
	assert.Equal(t, course.CreatorID, purchase.CreatorID)

	_, err = h.svc.FreeEnroll(ctx, course.ID.String())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Existing)
	assert.Equal(t, purchase.ID, conflict.Existing.ID)

	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE account_id = ?`, 1, account)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM cart_items WHERE account_id = ?`, 0, account)
}

func TestFreeEnrollRejectsPaidAndUnpublished(t *testing.T) {
	h := newHarness(t)
	paid := h.course(t, 5000)
	draft := testutil.SeedCourse(t, h.db, h.node, testutil.CourseSeed{Title: "Draft", Chapters: 1, LessonsPerChapter: 1})
	ctx := learner(h.node.Generate())

	_, err := h.svc.FreeEnroll(ctx, paid.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFreeCourse)

	_, err = h.svc.FreeEnroll(ctx, draft.ID.String())
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	_, err = h.svc.FreeEnroll(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestConcurrentFreeEnrollCreatesOnePurchase(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 0)
	account := h.node.Generate()
	ctx := learner(account)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.FreeEnroll(ctx, course.ID.String())
			var conflict *domain.ConflictError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE account_id = ? AND course_id = ?`, 1, account, course.ID)
}

func TestFreeEnrollMapsUniqueViolationToConflict(t *testing.T) {
	h := newHarness(t, func(p *Params) { p.Repo = blindRepo{Repository: repository.Provide()} })
	course := h.course(t, 0)
	account := h.node.Generate()
	testutil.SeedPurchase(t, h.db, h.node, account, course.ID, course.CreatorID, 0, "completed", time.Now())

	_, err := h.svc.FreeEnroll(learner(account), course.ID.String())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ReasonAlreadyEnrolled, conflict.Reason)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE account_id = ?`, 1, account)
}

func TestInitiateCheckoutRecordsAttempt(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 25000)
	account := h.node.Generate()

	checkout, err := h.svc.InitiateCheckout(learner(account), course.ID.String())
	require.NoError(t, err)
	assert.Len(t, checkout.OrderReference, 26)
	assert.Equal(t, "pi_1_secret", checkout.ClientSecret)
	assert.Equal(t, int64(25000), checkout.Amount)
	assert.Equal(t, domain.CheckoutStatusInitiated, checkout.Status)

	require.Len(t, h.gateway.charges, 1)
	charge := h.gateway.charges["pi_1"]
	assert.Equal(t, checkout.OrderReference, charge.req.OrderReference)
	assert.Equal(t, account.String(), charge.req.PayerIdentity)

	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM checkout_attempts WHERE order_reference = ? AND status = 'initiated'`, 1, checkout.OrderReference)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 0)
}

func TestInitiateCheckoutRejectsFreeAndOwned(t *testing.T) {
	h := newHarness(t)
	free := h.course(t, 0)
	paid := h.course(t, 1000)
	account := h.node.Generate()
	ctx := learner(account)

	_, err := h.svc.InitiateCheckout(ctx, free.ID.String())
	assert.ErrorIs(t, err, domain.ErrFreeCourse)

	testutil.SeedPurchase(t, h.db, h.node, account, paid.ID, paid.CreatorID, 1000, "completed", time.Now())
	_, err = h.svc.InitiateCheckout(ctx, paid.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyOwned)
}

func TestCancelledCheckoutIsDistinctFromFailure(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	cancelled, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	attempt, err := h.svc.ReportGatewayOutcome(ctx, cancelled.OrderReference, "cancelled", "", "")
	var cancelErr *domain.PaymentCancelledError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, domain.CheckoutStatusGatewayCancelled, attempt.Status)

	failed, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	attempt, err = h.svc.ReportGatewayOutcome(ctx, failed.OrderReference, "failed", "card_declined", "declined")
	var failErr *domain.PaymentFailedError
	require.ErrorAs(t, err, &failErr)
	assert.False(t, errors.As(err, &cancelErr))
	assert.Equal(t, "card_declined", failErr.Code)
	assert.Equal(t, domain.CheckoutStatusGatewayFailed, attempt.Status)

	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 0)
}

func TestReportGatewayOutcomeSucceededCreatesNoPurchase(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	attempt, err := h.svc.ReportGatewayOutcome(ctx, checkout.OrderReference, "succeeded", "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusGatewaySucceeded, attempt.Status)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 0)

	_, err = h.svc.ReportGatewayOutcome(ctx, checkout.OrderReference, "bogus", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestVerifyPaidPurchase(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	account := h.node.Generate()
	ctx := learner(account)

	_, err := h.svc.ToggleCart(ctx, course.ID.String())
	require.NoError(t, err)
	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)

	// Price changes after initiation do not affect the recorded amount.
	require.NoError(t, h.db.Exec(`UPDATE courses SET price = 99000 WHERE id = ?`, course.ID).Error)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)

	purchase, err := h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), purchase.Amount)
	require.NotNil(t, purchase.OrderReference)
	assert.Equal(t, checkout.OrderReference, *purchase.OrderReference)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM cart_items WHERE account_id = ?`, 0, account)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM checkout_attempts WHERE status = 'verified' AND purchase_id = ?`, 1, purchase.ID)

	again, err := h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, again.ID)
	assert.Equal(t, 1, h.gateway.lookups)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 1)
}

func TestVerifyPaidPurchaseRejectsOtherViewerAndCourse(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	other := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)

	_, err = h.svc.VerifyPaidPurchase(learner(h.node.Generate()), checkout.OrderReference, course.ID.String())
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)

	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, other.ID.String())
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)

	_, err = h.svc.VerifyPaidPurchase(context.Background(), checkout.OrderReference, course.ID.String())
	assert.ErrorIs(t, err, session.ErrAuthRequired)
}

func TestVerifyPaidPurchaseTrustsGatewayStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     paymentdomain.PaymentStatus
		wantStatus domain.CheckoutStatus
		check      func(t *testing.T, err error)
	}{{
		name:       "canceled",
		status:     paymentdomain.PaymentStatusCanceled,
		wantStatus: domain.CheckoutStatusGatewayCancelled,
		check: func(t *testing.T, err error) {
			var target *domain.PaymentCancelledError
			assert.ErrorAs(t, err, &target)
		},
	}, {
		name:       "failed",
		status:     paymentdomain.PaymentStatusFailed,
		wantStatus: domain.CheckoutStatusGatewayFailed,
		check: func(t *testing.T, err error) {
			var target *domain.PaymentFailedError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, "card_declined", target.Code)
		},
	}, {
		name:       "pending",
		status:     paymentdomain.PaymentStatusPending,
		wantStatus: domain.CheckoutStatusVerificationFailed,
		check: func(t *testing.T, err error) {
			var target *domain.VerificationFailedError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, domain.ReasonPaymentPending, target.Reason)
			assert.True(t, target.Retryable())
		},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			course := h.course(t, 10000)
			ctx := learner(h.node.Generate())

			checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
			require.NoError(t, err)
			// The client claims success; the gateway disagrees.
			_, err = h.svc.ReportGatewayOutcome(ctx, checkout.OrderReference, "succeeded", "", "")
			require.NoError(t, err)
			h.gateway.settle(checkout.OrderReference, tc.status)

			_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
			tc.check(t, err)
			testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 0)
			testutil.AssertCount(t, h.db,
				`SELECT COUNT(*) FROM checkout_attempts WHERE order_reference = ? AND status = ?`, 1,
				checkout.OrderReference, tc.wantStatus,
			)
		})
	}
}

func TestVerifyPaidPurchaseRetriesAfterTransientFailure(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)

	h.gateway.lookupErr = errors.New("connection reset")
	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	var verifyErr *domain.VerificationFailedError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, domain.ReasonGatewayUnreachable, verifyErr.Reason)

	h.gateway.lookupErr = nil
	purchase, err := h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), purchase.Amount)
}

func TestVerifyPaidPurchaseRejectsAmountMismatch(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)
	h.gateway.tamperAmount(checkout.OrderReference, 100)

	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	var verifyErr *domain.VerificationFailedError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, domain.ReasonAmountMismatch, verifyErr.Reason)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases`, 0)
}

func TestTwoTabsPayingTwiceYieldOnePurchase(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	account := h.node.Generate()
	ctx := learner(account)

	first, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	second, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(first.OrderReference, paymentdomain.PaymentStatusSucceeded)
	h.gateway.settle(second.OrderReference, paymentdomain.PaymentStatusSucceeded)

	purchase, err := h.svc.VerifyPaidPurchase(ctx, first.OrderReference, course.ID.String())
	require.NoError(t, err)

	_, err = h.svc.VerifyPaidPurchase(ctx, second.OrderReference, course.ID.String())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ReasonAlreadyOwned, conflict.Reason)
	require.NotNil(t, conflict.Existing)
	assert.Equal(t, purchase.ID, conflict.Existing.ID)

	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE account_id = ?`, 1, account)
	testutil.AssertCount(t, h.db,
		`SELECT COUNT(*) FROM checkout_attempts WHERE order_reference = ? AND status = 'verification_failed' AND failure_code = 'already_owned'`, 1,
		second.OrderReference,
	)
}

func TestVerifyPaidPurchaseLosesClaim(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	require.NoError(t, h.db.Exec(
		`UPDATE checkout_attempts SET status = 'verifying', updated_at = ? WHERE order_reference = ?`,
		time.Now().UTC(), checkout.OrderReference,
	).Error)

	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	var verifyErr *domain.VerificationFailedError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, domain.ReasonVerificationInProgress, verifyErr.Reason)
	assert.Equal(t, 0, h.gateway.lookups)
}

func TestVerifyPaidPurchaseReclaimsStaleClaim(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)
	require.NoError(t, h.db.Exec(
		`UPDATE checkout_attempts SET status = 'verifying', updated_at = ? WHERE order_reference = ?`,
		time.Now().UTC().Add(-10*time.Minute), checkout.OrderReference,
	).Error)

	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)
}

func TestVerifyPaidPurchaseHonoursLock(t *testing.T) {
	h := newHarness(t, func(p *Params) { p.Lock = denyLock{} })
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)

	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	var verifyErr *domain.VerificationFailedError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, domain.ReasonVerificationInProgress, verifyErr.Reason)
}

func TestSettleVerifiedFromWebhook(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	account := h.node.Generate()

	checkout, err := h.svc.InitiateCheckout(learner(account), course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)

	ref, err := h.svc.OrderReferenceForPayment(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, checkout.OrderReference, ref)

	require.NoError(t, h.svc.SettleVerified(context.Background(), checkout.OrderReference))
	require.NoError(t, h.svc.SettleVerified(context.Background(), checkout.OrderReference))
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE account_id = ?`, 1, account)

	assert.NoError(t, h.svc.SettleVerified(context.Background(), "unknown"))
}

func TestSettleGatewayOutcomeDoesNotOverrideVerified(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	ctx := learner(h.node.Generate())

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)
	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)

	require.NoError(t, h.svc.SettleGatewayOutcome(context.Background(), checkout.OrderReference, "failed", "late", ""))
	testutil.AssertCount(t, h.db,
		`SELECT COUNT(*) FROM checkout_attempts WHERE order_reference = ? AND status = 'verified'`, 1,
		checkout.OrderReference,
	)
}

func TestHandleRefundRevokesPurchase(t *testing.T) {
	h := newHarness(t)
	course := h.course(t, 10000)
	account := h.node.Generate()
	ctx := learner(account)

	checkout, err := h.svc.InitiateCheckout(ctx, course.ID.String())
	require.NoError(t, err)
	h.gateway.settle(checkout.OrderReference, paymentdomain.PaymentStatusSucceeded)
	_, err = h.svc.VerifyPaidPurchase(ctx, checkout.OrderReference, course.ID.String())
	require.NoError(t, err)

	library, err := h.svc.ListPurchases(ctx)
	require.NoError(t, err)
	require.Len(t, library, 1)
	assert.Equal(t, "Course", library[0].CourseTitle)

	require.NoError(t, h.svc.HandleRefund(context.Background(), checkout.OrderReference))
	require.NoError(t, h.svc.HandleRefund(context.Background(), checkout.OrderReference))

	library, err = h.svc.ListPurchases(ctx)
	require.NoError(t, err)
	assert.Empty(t, library)
	testutil.AssertCount(t, h.db, `SELECT COUNT(*) FROM purchases WHERE status = 'refunded'`, 1)

	// A refunded pair can be bought again.
	_, err = h.svc.InitiateCheckout(ctx, course.ID.String())
	assert.NoError(t, err)
}
