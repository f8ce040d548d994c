package domain

import (
	"context"

	"github.com/smallbiznis/coursemart/internal/providers/videohost"
)

type CreateCourseRequest struct {
	Title       string
	Description string
	Price       int64
	Currency    string
}

// CourseEdits carries the editor fields. Nil fields are left unchanged.
type CourseEdits struct {
	Title       *string
	Description *string
	Price       *int64
	Tags        *[]string
}

type AddChapterRequest struct {
	Title string
}

type AddLessonRequest struct {
	ChapterID string
	Title     string
	IsPreview bool
	MediaID   string
}

type CreateTagRequest struct {
	Code string
	Name string
}

type ReadinessReport struct {
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing"`
}

// MediaHost is the part of the video host the editor needs.
type MediaHost interface {
	ReleaseMedia(ctx context.Context, mediaID string) error
	CreateUpload(ctx context.Context, title string) (videohost.UploadSession, error)
}

type Service interface {
	CreateCourse(ctx context.Context, req CreateCourseRequest) (Course, error)
	GetCourse(ctx context.Context, courseID string) (CourseStructure, error)
	ListCreatorCourses(ctx context.Context) ([]Course, error)
	SaveDraft(ctx context.Context, courseID string, edits CourseEdits) (Course, error)
	AddChapter(ctx context.Context, courseID string, req AddChapterRequest) (Chapter, error)
	AddLesson(ctx context.Context, courseID string, req AddLessonRequest) (Lesson, error)
	AttachMedia(ctx context.Context, lessonID string, mediaID string) (Lesson, error)
	CreateUploadSession(ctx context.Context, lessonID string) (videohost.UploadSession, error)

	ListTags(ctx context.Context) ([]Tag, error)
	CreateTag(ctx context.Context, req CreateTagRequest) (Tag, error)

	CheckReadiness(ctx context.Context, courseID string) (ReadinessReport, error)
	Publish(ctx context.Context, courseID string, edits CourseEdits) (Course, error)
	Unpublish(ctx context.Context, courseID string, confirmed bool) (Course, error)

	DeleteCourse(ctx context.Context, courseID string) error
	DeleteLesson(ctx context.Context, lessonID string) error
}
