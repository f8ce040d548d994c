package domain

import "context"

type Service interface {
	MarkComplete(ctx context.Context, lessonID string) (ProgressRecord, error)
	CourseProgress(ctx context.Context, courseID string) (CourseProgress, error)
}
