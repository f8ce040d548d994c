package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/coursemart/internal/authorization"
	catalogdomain "github.com/smallbiznis/coursemart/internal/catalog/domain"
	entitlementdomain "github.com/smallbiznis/coursemart/internal/entitlement/domain"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	playbackdomain "github.com/smallbiznis/coursemart/internal/playback/domain"
	progressdomain "github.com/smallbiznis/coursemart/internal/progress/domain"
	purchasedomain "github.com/smallbiznis/coursemart/internal/purchase/domain"
	"github.com/smallbiznis/coursemart/internal/ratelimit"
	revenuedomain "github.com/smallbiznis/coursemart/internal/revenue/domain"
	"github.com/smallbiznis/coursemart/internal/session"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type       string            `json:"type"`
	Message    string            `json:"message"`
	Code       string            `json:"code,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	RetryAfter int64             `json:"retry_after,omitempty"`
	Missing    []string          `json:"missing,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if payload.RetryAfter > 0 {
			c.Header("Retry-After", strconv.FormatInt(payload.RetryAfter, 10))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger. It never carries messages,
// which may hold provider detail.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" {
		code = payload.Reason
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var (
		readiness    *catalogdomain.ValidationError
		release      *catalogdomain.MediaReleaseError
		tokenFetch   *playbackdomain.TokenFetchError
		cancelled    *purchasedomain.PaymentCancelledError
		failed       *purchasedomain.PaymentFailedError
		verification *purchasedomain.VerificationFailedError
		conflict     *purchasedomain.ConflictError
		limited      *ratelimit.LimitError
	)

	switch {
	case errors.As(err, &readiness):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "course is not ready to publish",
			Missing: readiness.Missing,
		}
	case errors.Is(err, session.ErrAuthRequired),
		errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "auth_required",
			Message: "sign in to continue",
		}
	case errors.Is(err, entitlementdomain.ErrNotEntitled):
		return http.StatusForbidden, errorPayload{
			Type:    "entitlement_required",
			Message: "purchase this course to continue",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, errorPayload{
			Type:       "rate_limited",
			Message:    "too many requests",
			Retryable:  true,
			RetryAfter: retryAfterSeconds(limited),
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "rate_limited",
			Message:   "too many requests",
			Retryable: true,
		}
	case errors.As(err, &tokenFetch):
		return http.StatusBadGateway, errorPayload{
			Type:      "token_fetch_failed",
			Message:   "could not fetch a playback token",
			Retryable: true,
		}
	case errors.As(err, &cancelled):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_cancelled",
			Message: "payment was cancelled",
		}
	case errors.As(err, &failed):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_failed",
			Message: "payment failed",
			Code:    failed.Code,
		}
	case errors.As(err, &verification):
		return http.StatusBadGateway, errorPayload{
			Type:      "verification_failed",
			Message:   "payment could not be verified yet",
			Reason:    verification.Reason,
			Retryable: verification.Retryable(),
		}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Reason:  conflict.Reason,
		}
	case errors.As(err, &release):
		return http.StatusBadGateway, errorPayload{
			Type:      "media_release_failed",
			Message:   "video host did not release the media",
			Retryable: true,
		}
	case errors.Is(err, purchasedomain.ErrAlreadyOwned),
		errors.Is(err, purchasedomain.ErrCheckoutClosed),
		errors.Is(err, catalogdomain.ErrTagExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Code:    err.Error(),
		}
	case errors.Is(err, purchasedomain.ErrGatewayUnavailable),
		errors.Is(err, catalogdomain.ErrMediaHostUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "service_unavailable",
			Message:   "service unavailable",
			Retryable: true,
		}
	case errors.Is(err, playbackdomain.ErrMediaUnavailable):
		return http.StatusNotFound, errorPayload{
			Type:    "media_unavailable",
			Message: "lesson has no media",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: err.Error(), Message: err.Error()},
			},
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func retryAfterSeconds(err *ratelimit.LimitError) int64 {
	seconds := int64(math.Ceil(err.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrChapterNotFound),
		errors.Is(err, catalogdomain.ErrLessonNotFound),
		errors.Is(err, entitlementdomain.ErrNotFound),
		errors.Is(err, purchasedomain.ErrCourseNotFound),
		errors.Is(err, purchasedomain.ErrCheckoutNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidTitle),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidCurrency),
		errors.Is(err, catalogdomain.ErrInvalidTag),
		errors.Is(err, catalogdomain.ErrInvalidMedia),
		errors.Is(err, catalogdomain.ErrUnknownTag),
		errors.Is(err, catalogdomain.ErrConfirmationRequired),
		errors.Is(err, entitlementdomain.ErrInvalidID),
		errors.Is(err, purchasedomain.ErrInvalidID),
		errors.Is(err, purchasedomain.ErrNotFreeCourse),
		errors.Is(err, purchasedomain.ErrFreeCourse),
		errors.Is(err, purchasedomain.ErrInvalidOutcome),
		errors.Is(err, progressdomain.ErrInvalidID),
		errors.Is(err, progressdomain.ErrPreviewLesson),
		errors.Is(err, revenuedomain.ErrInvalidID),
		errors.Is(err, revenuedomain.ErrInvalidPeriod),
		errors.Is(err, revenuedomain.ErrInvalidGranularity),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	default:
		return false
	}
}
