package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrCourseNotFound     = errors.New("not_found")
	ErrAlreadyOwned       = errors.New("already_owned")
	ErrNotFreeCourse      = errors.New("not_free_course")
	ErrFreeCourse         = errors.New("free_course_requires_enroll")
	ErrCheckoutNotFound   = errors.New("checkout_not_found")
	ErrCheckoutClosed     = errors.New("checkout_closed")
	ErrInvalidOutcome     = errors.New("invalid_outcome")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
)

// ConflictError reports that the viewer already holds an active purchase
// for the course. Existing is set when the purchase could be loaded.
type ConflictError struct {
	Reason   string
	Existing *Purchase
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

type PaymentCancelledError struct {
	OrderReference string
}

func (e *PaymentCancelledError) Error() string {
	return "payment_cancelled: " + e.OrderReference
}

type PaymentFailedError struct {
	OrderReference string
	Code           string
	Message        string
}

func (e *PaymentFailedError) Error() string {
	if e.Code == "" {
		return "payment_failed: " + e.OrderReference
	}
	return fmt.Sprintf("payment_failed: %s (%s)", e.OrderReference, e.Code)
}

// VerificationFailedError means the payment could not be confirmed yet. The
// caller may retry verification with the same order reference.
type VerificationFailedError struct {
	OrderReference string
	Reason         string
	Cause          error
}

func (e *VerificationFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("verification_failed: %s: %v", e.Reason, e.Cause)
	}
	return "verification_failed: " + e.Reason
}

func (e *VerificationFailedError) Unwrap() error { return e.Cause }

func (e *VerificationFailedError) Retryable() bool { return true }

const (
	ReasonVerificationInProgress = "verification_in_progress"
	ReasonGatewayUnreachable     = "gateway_unreachable"
	ReasonPaymentPending         = "payment_pending"
	ReasonReferenceMismatch      = "order_reference_mismatch"
	ReasonAmountMismatch         = "amount_mismatch"
	ReasonMissingPayment         = "missing_payment"
	ReasonAlreadyOwned           = "already_owned"
	ReasonAlreadyEnrolled        = "already_enrolled"
)
