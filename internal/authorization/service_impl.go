package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCourse   = "course"
	ObjectTag      = "tag"
	ObjectRevenue  = "revenue"
	ObjectPlatform = "platform"
)

const (
	ActionCourseCreate    = "course.create"
	ActionCourseEdit      = "course.edit"
	ActionCoursePublish   = "course.publish"
	ActionCourseDelete    = "course.delete"
	ActionCourseManageAny = "course.manage_any"

	ActionTagCreate = "tag.create"

	ActionRevenueViewOwn = "revenue.view_own"
	ActionRevenueViewAny = "revenue.view_any"

	ActionPlatformRevenueView = "platform.revenue_view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the policy from the casbin_rule table and seeds the role
// capabilities.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return err
	}
	return s.enforce(viewer, object, action)
}

func (s *ServiceImpl) AuthorizeCourse(ctx context.Context, creatorID snowflake.ID, object string, action string) (session.Viewer, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return session.Viewer{}, err
	}
	if err := s.enforce(viewer, object, action); err != nil {
		return viewer, err
	}
	if creatorID != 0 && viewer.AccountID == creatorID {
		return viewer, nil
	}
	if err := s.enforce(viewer, ObjectCourse, ActionCourseManageAny); err != nil {
		return viewer, err
	}
	return viewer, nil
}

func (s *ServiceImpl) enforce(viewer session.Viewer, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := roleSubject(viewer.Role)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role session.Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Creators manage their own catalog and see their own revenue
		{"role:creator", ObjectCourse, ActionCourseCreate},
		{"role:creator", ObjectCourse, ActionCourseEdit},
		{"role:creator", ObjectCourse, ActionCoursePublish},
		{"role:creator", ObjectCourse, ActionCourseDelete},
		{"role:creator", ObjectRevenue, ActionRevenueViewOwn},

		{"role:administrator", ObjectCourse, ActionCourseManageAny},
		{"role:administrator", ObjectTag, ActionTagCreate},
		{"role:administrator", ObjectRevenue, ActionRevenueViewAny},
		{"role:administrator", ObjectPlatform, ActionPlatformRevenueView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	if _, err := enforcer.AddGroupingPolicy("role:administrator", "role:creator"); err != nil {
		return err
	}
	return nil
}
