package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidTag           = errors.New("invalid_tag")
	ErrInvalidMedia         = errors.New("invalid_media")
	ErrUnknownTag           = errors.New("unknown_tag")
	ErrTagExists            = errors.New("tag_exists")
	ErrNotFound             = errors.New("not_found")
	ErrChapterNotFound      = errors.New("chapter_not_found")
	ErrLessonNotFound       = errors.New("lesson_not_found")
	ErrConfirmationRequired = errors.New("confirmation_required")
	ErrMediaHostUnavailable = errors.New("media_host_unavailable")
)

// ValidationError lists every precondition that keeps a course from being
// published.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "course is not ready to publish: " + strings.Join(e.Missing, "; ")
}

// MediaReleaseError aborts a deletion when the video host refused to
// release a media id.
type MediaReleaseError struct {
	MediaID string
	Cause   error
}

func (e *MediaReleaseError) Error() string {
	return fmt.Sprintf("release media %s: %v", e.MediaID, e.Cause)
}

func (e *MediaReleaseError) Unwrap() error { return e.Cause }
