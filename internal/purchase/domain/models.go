package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

type Purchase struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID snowflake.ID `json:"account_id" gorm:"not null"`
	CourseID  snowflake.ID `json:"course_id" gorm:"not null"`
	CreatorID snowflake.ID `json:"creator_id" gorm:"not null"`
	Amount    int64        `json:"amount" gorm:"not null"`
	Currency  string       `json:"currency" gorm:"type:text;not null"`
	// CommissionBPS is the platform rate in force when the purchase was
	// recorded. Revenue is always split at this rate.
	CommissionBPS    int64          `json:"commission_bps" gorm:"not null"`
	Status           PurchaseStatus `json:"status" gorm:"type:text;not null"`
	OrderReference   *string        `json:"order_reference,omitempty" gorm:"type:text"`
	GatewayPaymentID *string        `json:"gateway_payment_id,omitempty" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Purchase) TableName() string { return "purchases" }

// LibraryEntry is a purchase joined with the course it grants.
type LibraryEntry struct {
	Purchase
	CourseTitle string `json:"course_title"`
	CourseSlug  string `json:"course_slug,omitempty"`
}

type CartItem struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID snowflake.ID `json:"account_id" gorm:"not null"`
	CourseID  snowflake.ID `json:"course_id" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at"`
}

func (CartItem) TableName() string { return "cart_items" }

type CartEntry struct {
	CartItem
	CourseTitle string `json:"course_title"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	// Published is false once the creator takes the course down; the item
	// stays removable but can no longer be checked out.
	Published bool `json:"published"`
}

type CartToggleResult struct {
	InCart bool      `json:"in_cart"`
	Item   *CartItem `json:"item,omitempty"`
}

// CourseRef is the slice of a course that commerce decisions need.
type CourseRef struct {
	ID        snowflake.ID `gorm:"column:id"`
	CreatorID snowflake.ID `gorm:"column:creator_id"`
	Price     int64        `gorm:"column:price"`
	Currency  string       `gorm:"column:currency"`
	Published bool         `gorm:"column:published"`
}

type CheckoutStatus string

const (
	CheckoutStatusInitiated          CheckoutStatus = "initiated"
	CheckoutStatusGatewayCancelled   CheckoutStatus = "gateway_cancelled"
	CheckoutStatusGatewayFailed      CheckoutStatus = "gateway_failed"
	CheckoutStatusGatewaySucceeded   CheckoutStatus = "gateway_succeeded"
	CheckoutStatusVerifying          CheckoutStatus = "verifying"
	CheckoutStatusVerified           CheckoutStatus = "verified"
	CheckoutStatusVerificationFailed CheckoutStatus = "verification_failed"
)

// VerifiableStatuses are the states from which a verifier may claim an
// attempt. The gateway is re-queried, so a client-reported cancel or
// failure does not block a later successful payment.
var VerifiableStatuses = []CheckoutStatus{
	CheckoutStatusInitiated,
	CheckoutStatusGatewayCancelled,
	CheckoutStatusGatewayFailed,
	CheckoutStatusGatewaySucceeded,
	CheckoutStatusVerificationFailed,
}

// OutcomeStatuses are the states a client-reported outcome may overwrite.
var OutcomeStatuses = []CheckoutStatus{
	CheckoutStatusInitiated,
	CheckoutStatusGatewayCancelled,
	CheckoutStatusGatewayFailed,
	CheckoutStatusGatewaySucceeded,
}

type GatewayOutcome string

const (
	OutcomeSucceeded GatewayOutcome = "succeeded"
	OutcomeCancelled GatewayOutcome = "cancelled"
	OutcomeFailed    GatewayOutcome = "failed"
)

func ParseGatewayOutcome(value string) (GatewayOutcome, bool) {
	switch GatewayOutcome(value) {
	case OutcomeSucceeded, OutcomeCancelled, OutcomeFailed:
		return GatewayOutcome(value), true
	case "canceled":
		return OutcomeCancelled, true
	default:
		return "", false
	}
}

type CheckoutAttempt struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrderReference   string         `json:"order_reference" gorm:"type:text;not null"`
	AccountID        snowflake.ID   `json:"account_id" gorm:"not null"`
	CourseID         snowflake.ID   `json:"course_id" gorm:"not null"`
	Amount           int64          `json:"amount" gorm:"not null"`
	Currency         string         `json:"currency" gorm:"type:text;not null"`
	Provider         string         `json:"provider" gorm:"type:text;not null"`
	GatewayPaymentID *string        `json:"gateway_payment_id,omitempty" gorm:"type:text"`
	Status           CheckoutStatus `json:"status" gorm:"type:text;not null"`
	FailureCode      *string        `json:"failure_code,omitempty" gorm:"type:text"`
	FailureMessage   *string        `json:"failure_message,omitempty" gorm:"type:text"`
	PurchaseID       *snowflake.ID  `json:"purchase_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (CheckoutAttempt) TableName() string { return "checkout_attempts" }

// AttemptUpdate carries the columns written alongside a status transition.
type AttemptUpdate struct {
	FailureCode    *string
	FailureMessage *string
	PurchaseID     *snowflake.ID
	UpdatedAt      time.Time
}

type CheckoutSession struct {
	OrderReference string         `json:"order_reference"`
	ClientSecret   string         `json:"client_secret"`
	Provider       string         `json:"provider"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Status         CheckoutStatus `json:"status"`
}
