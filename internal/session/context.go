package session

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ErrAuthRequired is returned when an operation needs an authenticated viewer.
var ErrAuthRequired = errors.New("auth_required")

type Role string

const (
	RoleLearner       Role = "learner"
	RoleCreator       Role = "creator"
	RoleAdministrator Role = "administrator"
)

// ParseRole normalizes a role claim. Unknown roles fall back to learner.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleCreator:
		return RoleCreator
	case RoleAdministrator, "admin":
		return RoleAdministrator
	default:
		return RoleLearner
	}
}

// Viewer is the authenticated principal of a request.
type Viewer struct {
	AccountID snowflake.ID
	Role      Role
	SessionID string
}

func (v Viewer) IsAdministrator() bool {
	return v.Role == RoleAdministrator
}

type viewerKey struct{}

func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewer)
}

// ViewerFromContext returns the viewer stored in ctx, if any.
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	if ctx == nil {
		return Viewer{}, false
	}
	viewer, ok := ctx.Value(viewerKey{}).(Viewer)
	if !ok || viewer.AccountID == 0 {
		return Viewer{}, false
	}
	return viewer, true
}

// RequireViewer is ViewerFromContext that fails with ErrAuthRequired.
func RequireViewer(ctx context.Context) (Viewer, error) {
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		return Viewer{}, ErrAuthRequired
	}
	return viewer, nil
}

type clientIPKey struct{}

// WithClientIP records the caller address for per-client throttling of
// anonymous requests.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, strings.TrimSpace(ip))
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
