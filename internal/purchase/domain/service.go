package domain

import "context"

type Service interface {
	ToggleCart(ctx context.Context, courseID string) (CartToggleResult, error)
	ListCart(ctx context.Context) ([]CartEntry, error)

	FreeEnroll(ctx context.Context, courseID string) (Purchase, error)

	InitiateCheckout(ctx context.Context, courseID string) (CheckoutSession, error)
	ReportGatewayOutcome(ctx context.Context, orderReference string, outcome string, code string, message string) (CheckoutAttempt, error)
	VerifyPaidPurchase(ctx context.Context, orderReference string, courseID string) (Purchase, error)

	HandleRefund(ctx context.Context, orderReference string) error
	ListPurchases(ctx context.Context) ([]LibraryEntry, error)
}

// VerificationLock de-duplicates concurrent verifications of one order
// reference. Correctness never depends on it.
type VerificationLock interface {
	TryLockVerification(ctx context.Context, orderReference string) (string, bool)
	ReleaseVerification(ctx context.Context, orderReference string, token string)
}
