package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindLessonAccess(ctx context.Context, db *gorm.DB, lessonID snowflake.ID) (*LessonAccess, error)
	FindCourseAccess(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*CourseAccess, error)
	HasActivePurchase(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (bool, error)
}
