package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*CourseRef, error)

	FindActivePurchase(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (*Purchase, error)
	FindPurchase(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	FindPurchaseByOrderReference(ctx context.Context, db *gorm.DB, orderReference string) (*Purchase, error)
	InsertPurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	MarkRefunded(ctx context.Context, db *gorm.DB, orderReference string, at time.Time) (bool, error)
	ListLibrary(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]LibraryEntry, error)

	FindCartItem(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (*CartItem, error)
	InsertCartItem(ctx context.Context, db *gorm.DB, item *CartItem) (bool, error)
	DeleteCartItem(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (bool, error)
	ListCart(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]CartEntry, error)

	InsertAttempt(ctx context.Context, db *gorm.DB, attempt *CheckoutAttempt) error
	FindAttempt(ctx context.Context, db *gorm.DB, orderReference string) (*CheckoutAttempt, error)
	FindAttemptByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*CheckoutAttempt, error)
	// TransitionAttempt moves the attempt to `to` only when its current
	// status is one of `from`. It reports whether the row changed.
	TransitionAttempt(ctx context.Context, db *gorm.DB, orderReference string, from []CheckoutStatus, to CheckoutStatus, update AttemptUpdate) (bool, error)
	// ReclaimStaleAttempt takes over a verification that has been stuck
	// in verifying since before staleBefore.
	ReclaimStaleAttempt(ctx context.Context, db *gorm.DB, orderReference string, staleBefore time.Time, now time.Time) (bool, error)
}
