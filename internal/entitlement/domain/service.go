package domain

import "context"

type Service interface {
	// Resolve decides whether the viewer in ctx may play a lesson. It is
	// evaluated on every call.
	Resolve(ctx context.Context, lessonID string) (Decision, error)
	// ResolveCourse applies the same rules to a whole course, without the
	// preview rule.
	ResolveCourse(ctx context.Context, courseID string) (Decision, error)
}
