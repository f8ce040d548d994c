package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCourse(ctx context.Context, db *gorm.DB, course *Course) error
	FindCourse(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Course, error)
	ListCoursesByCreator(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) ([]Course, error)
	UpdateCourseDraft(ctx context.Context, db *gorm.DB, course *Course) error
	UpdatePublication(ctx context.Context, db *gorm.DB, course *Course) error
	DeleteCourse(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertChapter(ctx context.Context, db *gorm.DB, chapter *Chapter) error
	FindChapter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Chapter, error)
	ListChapters(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]Chapter, error)
	NextChapterPosition(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (int, error)

	InsertLesson(ctx context.Context, db *gorm.DB, lesson *Lesson) error
	FindLesson(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lesson, error)
	ListLessons(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]Lesson, error)
	NextLessonPosition(ctx context.Context, db *gorm.DB, chapterID snowflake.ID) (int, error)
	UpdateLessonMedia(ctx context.Context, db *gorm.DB, lessonID snowflake.ID, mediaID *string, now time.Time) error
	DeleteLesson(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertTag(ctx context.Context, db *gorm.DB, tag *Tag) (bool, error)
	ListTags(ctx context.Context, db *gorm.DB) ([]Tag, error)
	FindTagsByCodes(ctx context.Context, db *gorm.DB, codes []string) ([]Tag, error)
	ListCourseTags(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]Tag, error)
	ReplaceCourseTags(ctx context.Context, db *gorm.DB, courseID snowflake.ID, tagIDs []snowflake.ID) error

	FindAccount(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
}
