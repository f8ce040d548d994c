package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/session"
	"github.com/smallbiznis/coursemart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func viewerCtx(id snowflake.ID, role session.Role) context.Context {
	return session.WithViewer(context.Background(), session.Viewer{AccountID: id, Role: role})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(context.Background(), ObjectCourse, ActionCourseCreate), session.ErrAuthRequired)
	assert.ErrorIs(t, svc.Authorize(viewerCtx(1, session.RoleLearner), ObjectCourse, ActionCourseCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(viewerCtx(1, session.RoleCreator), ObjectCourse, ActionCourseCreate))

	// administrators inherit creator capabilities
	assert.NoError(t, svc.Authorize(viewerCtx(1, session.RoleAdministrator), ObjectCourse, ActionCourseCreate))
	assert.NoError(t, svc.Authorize(viewerCtx(1, session.RoleAdministrator), ObjectPlatform, ActionPlatformRevenueView))
	assert.ErrorIs(t, svc.Authorize(viewerCtx(1, session.RoleCreator), ObjectPlatform, ActionPlatformRevenueView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(viewerCtx(1, session.RoleCreator), "", "x"), ErrInvalidObject)
}

func TestAuthorizeCourseOwnership(t *testing.T) {
	svc := newTestService(t)
	owner := snowflake.ID(100)

	viewer, err := svc.AuthorizeCourse(viewerCtx(owner, session.RoleCreator), owner, ObjectCourse, ActionCourseEdit)
	require.NoError(t, err)
	assert.Equal(t, owner, viewer.AccountID)

	_, err = svc.AuthorizeCourse(viewerCtx(200, session.RoleCreator), owner, ObjectCourse, ActionCourseEdit)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AuthorizeCourse(viewerCtx(300, session.RoleAdministrator), owner, ObjectCourse, ActionCourseDelete)
	assert.NoError(t, err)

	_, err = svc.AuthorizeCourse(viewerCtx(owner, session.RoleLearner), owner, ObjectCourse, ActionCourseEdit)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNewEnforcerPersistsPolicies(t *testing.T) {
	db := testutil.NewDB(t)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	ok, err := enforcer.Enforce("role:administrator", ObjectCourse, ActionCourseEdit)
	require.NoError(t, err)
	assert.True(t, ok)

	// reloading must not fail on the seeded rows
	_, err = NewEnforcer(db)
	require.NoError(t, err)
}
