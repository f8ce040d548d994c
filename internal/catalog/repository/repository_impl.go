package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const courseColumns = `id, creator_id, title, description, price, currency, slug, published, published_at, created_at, updated_at`

func (r *repo) InsertCourse(ctx context.Context, db *gorm.DB, course *domain.Course) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		course.ID,
		course.CreatorID,
		course.Title,
		course.Description,
		course.Price,
		course.Currency,
		course.Slug,
		course.Published,
		course.PublishedAt,
		course.CreatedAt,
		course.UpdatedAt,
	).Error
}

func (r *repo) FindCourse(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Course, error) {
	var course domain.Course
	err := db.WithContext(ctx).Raw(
		`SELECT `+courseColumns+` FROM courses WHERE id = ?`,
		id,
	).Scan(&course).Error
	if err != nil {
		return nil, err
	}
	if course.ID == 0 {
		return nil, nil
	}
	return &course, nil
}

func (r *repo) ListCoursesByCreator(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) ([]domain.Course, error) {
	var courses []domain.Course
	err := db.WithContext(ctx).Raw(
		`SELECT `+courseColumns+` FROM courses
		 WHERE creator_id = ?
		 ORDER BY created_at DESC, id DESC`,
		creatorID,
	).Scan(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *repo) UpdateCourseDraft(ctx context.Context, db *gorm.DB, course *domain.Course) error {
	return db.WithContext(ctx).Exec(
		`UPDATE courses
		 SET title = ?, description = ?, price = ?, updated_at = ?
		 WHERE id = ?`,
		course.Title,
		course.Description,
		course.Price,
		course.UpdatedAt,
		course.ID,
	).Error
}

func (r *repo) UpdatePublication(ctx context.Context, db *gorm.DB, course *domain.Course) error {
	return db.WithContext(ctx).Exec(
		`UPDATE courses
		 SET published = ?, published_at = ?, slug = ?, updated_at = ?
		 WHERE id = ?`,
		course.Published,
		course.PublishedAt,
		course.Slug,
		course.UpdatedAt,
		course.ID,
	).Error
}

// DeleteCourse removes the structural rows explicitly so the result does
// not depend on the dialect enforcing foreign keys. Purchases are kept for
// revenue history.
func (r *repo) DeleteCourse(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	statements := []string{
		`DELETE FROM progress_records WHERE course_id = ?`,
		`DELETE FROM cart_items WHERE course_id = ?`,
		`DELETE FROM course_tags WHERE course_id = ?`,
		`DELETE FROM lessons WHERE course_id = ?`,
		`DELETE FROM chapters WHERE course_id = ?`,
		`DELETE FROM courses WHERE id = ?`,
	}
	for _, stmt := range statements {
		if err := db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertChapter(ctx context.Context, db *gorm.DB, chapter *domain.Chapter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chapters (id, course_id, title, position, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		chapter.ID,
		chapter.CourseID,
		chapter.Title,
		chapter.Position,
		chapter.CreatedAt,
	).Error
}

func (r *repo) FindChapter(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Chapter, error) {
	var chapter domain.Chapter
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, title, position, created_at FROM chapters WHERE id = ?`,
		id,
	).Scan(&chapter).Error
	if err != nil {
		return nil, err
	}
	if chapter.ID == 0 {
		return nil, nil
	}
	return &chapter, nil
}

func (r *repo) ListChapters(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]domain.Chapter, error) {
	var chapters []domain.Chapter
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, title, position, created_at
		 FROM chapters WHERE course_id = ?
		 ORDER BY position ASC, id ASC`,
		courseID,
	).Scan(&chapters).Error
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

func (r *repo) NextChapterPosition(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (int, error) {
	var next int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(position) + 1, 0) FROM chapters WHERE course_id = ?`,
		courseID,
	).Scan(&next).Error
	return next, err
}

const lessonColumns = `id, course_id, chapter_id, title, position, is_preview, media_id, created_at, updated_at`

func (r *repo) InsertLesson(ctx context.Context, db *gorm.DB, lesson *domain.Lesson) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO lessons (`+lessonColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lesson.ID,
		lesson.CourseID,
		lesson.ChapterID,
		lesson.Title,
		lesson.Position,
		lesson.IsPreview,
		lesson.MediaID,
		lesson.CreatedAt,
		lesson.UpdatedAt,
	).Error
}

func (r *repo) FindLesson(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lesson, error) {
	var lesson domain.Lesson
	err := db.WithContext(ctx).Raw(
		`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`,
		id,
	).Scan(&lesson).Error
	if err != nil {
		return nil, err
	}
	if lesson.ID == 0 {
		return nil, nil
	}
	return &lesson, nil
}

func (r *repo) ListLessons(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	err := db.WithContext(ctx).Raw(
		`SELECT `+lessonColumns+` FROM lessons
		 WHERE course_id = ?
		 ORDER BY position ASC, id ASC`,
		courseID,
	).Scan(&lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *repo) NextLessonPosition(ctx context.Context, db *gorm.DB, chapterID snowflake.ID) (int, error) {
	var next int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(position) + 1, 0) FROM lessons WHERE chapter_id = ?`,
		chapterID,
	).Scan(&next).Error
	return next, err
}

func (r *repo) UpdateLessonMedia(ctx context.Context, db *gorm.DB, lessonID snowflake.ID, mediaID *string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lessons SET media_id = ?, updated_at = ? WHERE id = ?`,
		mediaID,
		now,
		lessonID,
	).Error
}

func (r *repo) DeleteLesson(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM progress_records WHERE lesson_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM lessons WHERE id = ?`, id).Error
}

func (r *repo) InsertTag(ctx context.Context, db *gorm.DB, tag *domain.Tag) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO tags (id, code, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		tag.ID,
		tag.Code,
		tag.Name,
		tag.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListTags(ctx context.Context, db *gorm.DB) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at FROM tags ORDER BY code ASC`,
	).Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repo) FindTagsByCodes(ctx context.Context, db *gorm.DB, codes []string) ([]domain.Tag, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var tags []domain.Tag
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at FROM tags WHERE code IN ? ORDER BY code ASC`,
		codes,
	).Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repo) ListCourseTags(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.code, t.name, t.created_at
		 FROM tags t
		 JOIN course_tags ct ON ct.tag_id = t.id
		 WHERE ct.course_id = ?
		 ORDER BY t.code ASC`,
		courseID,
	).Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repo) ReplaceCourseTags(ctx context.Context, db *gorm.DB, courseID snowflake.ID, tagIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM course_tags WHERE course_id = ?`, courseID).Error; err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO course_tags (course_id, tag_id) VALUES (?, ?)
			 ON CONFLICT (course_id, tag_id) DO NOTHING`,
			courseID,
			tagID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, role, display_name, created_at FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}
