package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	UpsertCompletion(ctx context.Context, db *gorm.DB, record *ProgressRecord) error
	FindRecord(ctx context.Context, db *gorm.DB, accountID, lessonID snowflake.ID) (*ProgressRecord, error)
	CountGatedLessons(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (int64, error)
	ListCompletedLessons(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) ([]snowflake.ID, error)
}
