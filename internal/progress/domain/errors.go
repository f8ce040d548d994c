package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrPreviewLesson = errors.New("preview_lesson")
)
