package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/clock"
	entitlementdomain "github.com/smallbiznis/coursemart/internal/entitlement/domain"
	"github.com/smallbiznis/coursemart/internal/progress/domain"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Entitlement entitlementdomain.Service
	Clock       clock.Clock `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	entitlement entitlementdomain.Service
	clock       clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("progress.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		entitlement: p.Entitlement,
		clock:       clk,
	}
}

// MarkComplete records that the viewer finished a gated lesson. Repeated
// calls touch last_watched_at and keep the first completed_at.
func (s *Service) MarkComplete(ctx context.Context, lessonID string) (domain.ProgressRecord, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.ProgressRecord{}, err
	}

	decision, err := s.entitlement.Resolve(ctx, lessonID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	if decision.IsPreview {
		return domain.ProgressRecord{}, domain.ErrPreviewLesson
	}
	if err := entitlementdomain.Authorize(decision); err != nil {
		return domain.ProgressRecord{}, err
	}

	now := s.clock.Now().UTC()
	record := domain.ProgressRecord{
		ID:            s.genID.Generate(),
		AccountID:     viewer.AccountID,
		LessonID:      decision.LessonID,
		CourseID:      decision.CourseID,
		Completed:     true,
		CompletedAt:   &now,
		LastWatchedAt: now,
	}
	if err := s.repo.UpsertCompletion(ctx, s.db, &record); err != nil {
		return domain.ProgressRecord{}, err
	}

	stored, err := s.repo.FindRecord(ctx, s.db, viewer.AccountID, decision.LessonID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	if stored == nil {
		return record, nil
	}
	return *stored, nil
}

func (s *Service) CourseProgress(ctx context.Context, courseID string) (domain.CourseProgress, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.CourseProgress{}, err
	}

	decision, err := s.entitlement.ResolveCourse(ctx, courseID)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	if err := entitlementdomain.Authorize(decision); err != nil {
		return domain.CourseProgress{}, err
	}

	total, err := s.repo.CountGatedLessons(ctx, s.db, decision.CourseID)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	completed, err := s.repo.ListCompletedLessons(ctx, s.db, viewer.AccountID, decision.CourseID)
	if err != nil {
		return domain.CourseProgress{}, err
	}

	progress := domain.CourseProgress{
		CourseID:           decision.CourseID,
		CompletedLessons:   int64(len(completed)),
		TotalLessons:       total,
		CompletedLessonIDs: completed,
	}
	if progress.CompletedLessonIDs == nil {
		progress.CompletedLessonIDs = []snowflake.ID{}
	}
	if total > 0 {
		progress.Percent = int(progress.CompletedLessons * 100 / total)
	}
	return progress, nil
}
