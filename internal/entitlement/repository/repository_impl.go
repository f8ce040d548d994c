package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLessonAccess(ctx context.Context, db *gorm.DB, lessonID snowflake.ID) (*domain.LessonAccess, error) {
	var row domain.LessonAccess
	err := db.WithContext(ctx).Raw(
		`SELECT l.id AS lesson_id, l.course_id, c.creator_id, l.is_preview, l.media_id, c.price, c.published
		 FROM lessons l
		 JOIN courses c ON c.id = l.course_id
		 WHERE l.id = ?`,
		lessonID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.LessonID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) FindCourseAccess(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*domain.CourseAccess, error) {
	var row domain.CourseAccess
	err := db.WithContext(ctx).Raw(
		`SELECT id AS course_id, creator_id, price, published FROM courses WHERE id = ?`,
		courseID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.CourseID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) HasActivePurchase(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM purchases
		 WHERE account_id = ? AND course_id = ? AND status <> 'refunded'`,
		accountID,
		courseID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
