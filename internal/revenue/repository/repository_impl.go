package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/revenue/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListCompletedPurchases(ctx context.Context, db *gorm.DB, filter domain.Filter) ([]domain.PurchaseRow, error) {
	query := db.WithContext(ctx).Table("purchases p").
		Select(`p.id AS purchase_id, p.course_id, COALESCE(c.title, '') AS course_title,
			p.creator_id, p.account_id, p.amount, p.currency, p.commission_bps, p.created_at`).
		Joins("LEFT JOIN courses c ON c.id = p.course_id").
		Where("p.status = ?", "completed")

	if filter.CreatorID != nil {
		query = query.Where("p.creator_id = ?", *filter.CreatorID)
	}
	if filter.CourseID != nil {
		query = query.Where("p.course_id = ?", *filter.CourseID)
	}
	if filter.From != nil {
		query = query.Where("p.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("p.created_at < ?", filter.To.UTC())
	}

	var rows []domain.PurchaseRow
	if err := query.Order("p.created_at ASC, p.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindDisplayName(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (string, error) {
	var name string
	err := db.WithContext(ctx).Raw(
		`SELECT display_name FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&name).Error
	return name, err
}
