package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/progress/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertCompletion(ctx context.Context, db *gorm.DB, record *domain.ProgressRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO progress_records (id, account_id, lesson_id, course_id, completed, completed_at, last_watched_at)
		 VALUES (?, ?, ?, ?, TRUE, ?, ?)
		 ON CONFLICT (account_id, lesson_id) DO UPDATE SET
			last_watched_at = excluded.last_watched_at,
			completed = TRUE,
			completed_at = COALESCE(progress_records.completed_at, excluded.completed_at)`,
		record.ID,
		record.AccountID,
		record.LessonID,
		record.CourseID,
		record.CompletedAt,
		record.LastWatchedAt,
	).Error
}

func (r *repo) FindRecord(ctx context.Context, db *gorm.DB, accountID, lessonID snowflake.ID) (*domain.ProgressRecord, error) {
	var record domain.ProgressRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, lesson_id, course_id, completed, completed_at, last_watched_at
		 FROM progress_records
		 WHERE account_id = ? AND lesson_id = ?`,
		accountID,
		lessonID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) CountGatedLessons(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM lessons WHERE course_id = ? AND is_preview = FALSE`,
		courseID,
	).Scan(&total).Error
	return total, err
}

func (r *repo) ListCompletedLessons(ctx context.Context, db *gorm.DB, accountID, courseID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT pr.lesson_id
		 FROM progress_records pr
		 JOIN lessons l ON l.id = pr.lesson_id
		 WHERE pr.account_id = ? AND pr.course_id = ? AND pr.completed = TRUE AND l.is_preview = FALSE
		 ORDER BY pr.completed_at, pr.lesson_id`,
		accountID,
		courseID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
