package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const purchaseColumns = `id, account_id, course_id, creator_id, amount, currency, commission_bps, status, order_reference, gateway_payment_id, created_at, updated_at`

const attemptColumns = `id, order_reference, account_id, course_id, amount, currency, provider, gateway_payment_id,
	status, failure_code, failure_message, purchase_id, created_at, updated_at`

func (r *repo) FindCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*domain.CourseRef, error) {
	var course domain.CourseRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, creator_id, price, currency, published FROM courses WHERE id = ?`,
		courseID,
	).Scan(&course).Error
	if err != nil {
		return nil, err
	}
	if course.ID == 0 {
		return nil, nil
	}
	return &course, nil
}

func (r *repo) FindActivePurchase(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (*domain.Purchase, error) {
	return r.findPurchase(ctx, db,
		`SELECT `+purchaseColumns+` FROM purchases
		 WHERE account_id = ? AND course_id = ? AND status <> ?
		 LIMIT 1`,
		accountID, courseID, domain.PurchaseStatusRefunded,
	)
}

func (r *repo) FindPurchase(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	return r.findPurchase(ctx, db, `SELECT `+purchaseColumns+` FROM purchases WHERE id = ?`, id)
}

func (r *repo) FindPurchaseByOrderReference(ctx context.Context, db *gorm.DB, orderReference string) (*domain.Purchase, error) {
	return r.findPurchase(ctx, db, `SELECT `+purchaseColumns+` FROM purchases WHERE order_reference = ?`, orderReference)
}

func (r *repo) findPurchase(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Purchase, error) {
	var purchase domain.Purchase
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&purchase).Error; err != nil {
		return nil, err
	}
	if purchase.ID == 0 {
		return nil, nil
	}
	return &purchase, nil
}

// InsertPurchase does not swallow conflicts: the active-pair and
// order-reference unique indexes are how callers detect duplicates.
func (r *repo) InsertPurchase(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchases (`+purchaseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.AccountID,
		purchase.CourseID,
		purchase.CreatorID,
		purchase.Amount,
		purchase.Currency,
		purchase.CommissionBPS,
		purchase.Status,
		purchase.OrderReference,
		purchase.GatewayPaymentID,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	).Error
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, orderReference string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, updated_at = ?
		 WHERE order_reference = ? AND status = ?`,
		domain.PurchaseStatusRefunded,
		at,
		orderReference,
		domain.PurchaseStatusCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListLibrary(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.LibraryEntry, error) {
	var entries []domain.LibraryEntry
	err := db.WithContext(ctx).Raw(
		`SELECT p.id, p.account_id, p.course_id, p.creator_id, p.amount, p.currency, p.commission_bps, p.status,
			p.order_reference, p.gateway_payment_id, p.created_at, p.updated_at,
			c.title AS course_title, COALESCE(c.slug, '') AS course_slug
		 FROM purchases p
		 JOIN courses c ON c.id = p.course_id
		 WHERE p.account_id = ? AND p.status = ?
		 ORDER BY p.created_at DESC, p.id DESC`,
		accountID,
		domain.PurchaseStatusCompleted,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) FindCartItem(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (*domain.CartItem, error) {
	var item domain.CartItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, course_id, created_at
		 FROM cart_items
		 WHERE account_id = ? AND course_id = ?`,
		accountID,
		courseID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertCartItem(ctx context.Context, db *gorm.DB, item *domain.CartItem) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO cart_items (id, account_id, course_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id, course_id) DO NOTHING`,
		item.ID,
		item.AccountID,
		item.CourseID,
		item.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteCartItem(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM cart_items WHERE account_id = ? AND course_id = ?`,
		accountID,
		courseID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListCart(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.CartEntry, error) {
	var entries []domain.CartEntry
	err := db.WithContext(ctx).Raw(
		`SELECT ci.id, ci.account_id, ci.course_id, ci.created_at,
			c.title AS course_title, c.price, c.currency, c.published
		 FROM cart_items ci
		 JOIN courses c ON c.id = ci.course_id
		 WHERE ci.account_id = ?
		   AND NOT EXISTS (
			SELECT 1 FROM purchases p
			WHERE p.account_id = ci.account_id
			  AND p.course_id = ci.course_id
			  AND p.status <> ?
		   )
		 ORDER BY ci.created_at DESC, ci.id DESC`,
		accountID,
		domain.PurchaseStatusRefunded,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) InsertAttempt(ctx context.Context, db *gorm.DB, attempt *domain.CheckoutAttempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO checkout_attempts (`+attemptColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.OrderReference,
		attempt.AccountID,
		attempt.CourseID,
		attempt.Amount,
		attempt.Currency,
		attempt.Provider,
		attempt.GatewayPaymentID,
		attempt.Status,
		attempt.FailureCode,
		attempt.FailureMessage,
		attempt.PurchaseID,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	).Error
}

func (r *repo) FindAttempt(ctx context.Context, db *gorm.DB, orderReference string) (*domain.CheckoutAttempt, error) {
	return r.findAttempt(ctx, db, `SELECT `+attemptColumns+` FROM checkout_attempts WHERE order_reference = ?`, orderReference)
}

func (r *repo) FindAttemptByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*domain.CheckoutAttempt, error) {
	return r.findAttempt(ctx, db,
		`SELECT `+attemptColumns+` FROM checkout_attempts
		 WHERE gateway_payment_id = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		paymentID,
	)
}

func (r *repo) findAttempt(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.CheckoutAttempt, error) {
	var attempt domain.CheckoutAttempt
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&attempt).Error; err != nil {
		return nil, err
	}
	if attempt.ID == 0 {
		return nil, nil
	}
	return &attempt, nil
}

func (r *repo) TransitionAttempt(
	ctx context.Context,
	db *gorm.DB,
	orderReference string,
	from []domain.CheckoutStatus,
	to domain.CheckoutStatus,
	update domain.AttemptUpdate,
) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET status = ?,
			failure_code = ?,
			failure_message = ?,
			purchase_id = COALESCE(?, purchase_id),
			updated_at = ?
		 WHERE order_reference = ? AND status IN ?`,
		to,
		update.FailureCode,
		update.FailureMessage,
		update.PurchaseID,
		update.UpdatedAt,
		orderReference,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ReclaimStaleAttempt(ctx context.Context, db *gorm.DB, orderReference string, staleBefore time.Time, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET updated_at = ?
		 WHERE order_reference = ? AND status = ? AND updated_at < ?`,
		now,
		orderReference,
		domain.CheckoutStatusVerifying,
		staleBefore,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
