package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/entitlement/domain"
	obsmetrics "github.com/smallbiznis/coursemart/internal/observability/metrics"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("entitlement.service"),
		repo:    p.Repo,
		metrics: p.ObsMetrics,
	}
}

func (s *Service) Resolve(ctx context.Context, lessonID string) (domain.Decision, error) {
	id, err := parseID(lessonID)
	if err != nil {
		return domain.Decision{}, err
	}

	access, err := s.repo.FindLessonAccess(ctx, s.db, id)
	if err != nil {
		return domain.Decision{}, err
	}
	if access == nil {
		return domain.Decision{}, domain.ErrNotFound
	}

	viewer, hasViewer := session.ViewerFromContext(ctx)
	if !access.Published && !canSeeUnpublished(viewer, hasViewer, access.CreatorID) {
		return domain.Decision{}, domain.ErrNotFound
	}

	decision := domain.Decision{
		LessonID:  access.LessonID,
		CourseID:  access.CourseID,
		IsPreview: access.IsPreview,
	}
	if access.MediaID != nil {
		decision.MediaID = strings.TrimSpace(*access.MediaID)
	}
	decision.MediaAvailable = decision.MediaID != ""

	switch {
	case access.IsPreview:
		decision.State, decision.Reason = domain.StateEntitled, domain.ReasonPreview
	case access.Price == 0:
		decision.State, decision.Reason = domain.StateEntitled, domain.ReasonFreeCourse
	default:
		decision.State, decision.Reason = s.resolvePurchase(ctx, viewer, hasViewer, access.CourseID)
	}

	s.metrics.RecordEntitlementDecision(ctx, decision.State.String())
	return decision, nil
}

func (s *Service) ResolveCourse(ctx context.Context, courseID string) (domain.Decision, error) {
	id, err := parseID(courseID)
	if err != nil {
		return domain.Decision{}, err
	}

	access, err := s.repo.FindCourseAccess(ctx, s.db, id)
	if err != nil {
		return domain.Decision{}, err
	}
	if access == nil {
		return domain.Decision{}, domain.ErrNotFound
	}

	viewer, hasViewer := session.ViewerFromContext(ctx)
	if !access.Published && !canSeeUnpublished(viewer, hasViewer, access.CreatorID) {
		return domain.Decision{}, domain.ErrNotFound
	}

	decision := domain.Decision{CourseID: access.CourseID}
	if access.Price == 0 {
		decision.State, decision.Reason = domain.StateEntitled, domain.ReasonFreeCourse
	} else {
		decision.State, decision.Reason = s.resolvePurchase(ctx, viewer, hasViewer, access.CourseID)
	}

	s.metrics.RecordEntitlementDecision(ctx, decision.State.String())
	return decision, nil
}

// resolvePurchase never grants on a failed read.
func (s *Service) resolvePurchase(ctx context.Context, viewer session.Viewer, hasViewer bool, courseID snowflake.ID) (domain.State, string) {
	if !hasViewer {
		return domain.StateAnonymousViewer, domain.ReasonNoViewer
	}

	owned, err := s.repo.HasActivePurchase(ctx, s.db, viewer.AccountID, courseID)
	if err != nil {
		s.log.Warn("purchase lookup failed, denying access",
			zap.String("course_id", courseID.String()),
			zap.String("viewer_id", viewer.AccountID.String()),
			zap.Error(err),
		)
		return domain.StateAuthenticatedUnentitled, domain.ReasonStoreError
	}
	if owned {
		return domain.StateEntitled, domain.ReasonPurchased
	}
	return domain.StateAuthenticatedUnentitled, domain.ReasonNotPurchased
}

func canSeeUnpublished(viewer session.Viewer, hasViewer bool, creatorID snowflake.ID) bool {
	if !hasViewer {
		return false
	}
	return viewer.IsAdministrator() || viewer.AccountID == creatorID
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
