package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/session"
)

type Service interface {
	// Authorize checks a role capability for the viewer in ctx.
	Authorize(ctx context.Context, object string, action string) error
	// AuthorizeCourse lets the owning creator through and otherwise requires
	// the manage-any capability for object.
	AuthorizeCourse(ctx context.Context, creatorID snowflake.ID, object string, action string) (session.Viewer, error)
}
