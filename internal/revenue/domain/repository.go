package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListCompletedPurchases(ctx context.Context, db *gorm.DB, filter Filter) ([]PurchaseRow, error)
	FindDisplayName(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (string, error)
}
