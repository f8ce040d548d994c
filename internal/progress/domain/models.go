package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ProgressRecord struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID     snowflake.ID `json:"account_id" gorm:"not null"`
	LessonID      snowflake.ID `json:"lesson_id" gorm:"not null"`
	CourseID      snowflake.ID `json:"course_id" gorm:"not null"`
	Completed     bool         `json:"completed" gorm:"not null"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	LastWatchedAt time.Time    `json:"last_watched_at" gorm:"not null"`
}

func (ProgressRecord) TableName() string { return "progress_records" }

// CourseProgress counts non-preview lessons only.
type CourseProgress struct {
	CourseID           snowflake.ID   `json:"course_id"`
	CompletedLessons   int64          `json:"completed_lessons"`
	TotalLessons       int64          `json:"total_lessons"`
	Percent            int            `json:"percent"`
	CompletedLessonIDs []snowflake.ID `json:"completed_lesson_ids"`
}
