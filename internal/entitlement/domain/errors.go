package domain

import (
	"errors"

	"github.com/smallbiznis/coursemart/internal/session"
)

var (
	ErrNotEntitled = errors.New("entitlement_required")
	ErrNotFound    = errors.New("not_found")
	ErrInvalidID   = errors.New("invalid_id")
)

// Authorize maps a decision onto the error a caller should surface.
func Authorize(decision Decision) error {
	switch decision.State {
	case StateEntitled:
		return nil
	case StateAnonymousViewer:
		return session.ErrAuthRequired
	default:
		return ErrNotEntitled
	}
}
