package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/entitlement/domain"
	"github.com/smallbiznis/coursemart/internal/entitlement/repository"
	"github.com/smallbiznis/coursemart/internal/session"
	"github.com/smallbiznis/coursemart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type failingPurchaseRepo struct {
	domain.Repository
}

func (failingPurchaseRepo) HasActivePurchase(context.Context, *gorm.DB, snowflake.ID, snowflake.ID) (bool, error) {
	return false, errors.New("connection reset")
}

func newTestService(t *testing.T, repo domain.Repository) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := testutil.NewDB(t)
	if repo == nil {
		repo = repository.Provide()
	}
	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repo})
	return svc, db, testutil.NewNode(t, 1)
}

func viewerCtx(id snowflake.ID, role session.Role) context.Context {
	return session.WithViewer(context.Background(), session.Viewer{AccountID: id, Role: role})
}

func TestPreviewLessonIsEntitledForAnonymousViewer(t *testing.T) {
	svc, db, node := newTestService(t, nil)
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		Title: "Paid", Price: 20000, Published: true, Chapters: 1, LessonsPerChapter: 2, PreviewLessons: 1,
	})

	decision, err := svc.Resolve(context.Background(), fx.PreviewIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateEntitled, decision.State)
	assert.Equal(t, domain.ReasonPreview, decision.Reason)
	assert.True(t, decision.MediaAvailable)
	assert.NoError(t, domain.Authorize(decision))

	decision, err = svc.Resolve(context.Background(), fx.PaidIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateAnonymousViewer, decision.State)
	assert.ErrorIs(t, domain.Authorize(decision), session.ErrAuthRequired)
}

func TestFreeCourseIsEntitledWithoutPurchase(t *testing.T) {
	svc, db, node := newTestService(t, nil)
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		Title: "Free", Price: 0, Published: true, Chapters: 1, LessonsPerChapter: 1,
	})

	decision, err := svc.Resolve(context.Background(), fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateEntitled, decision.State)
	assert.Equal(t, domain.ReasonFreeCourse, decision.Reason)

	course, err := svc.ResolveCourse(viewerCtx(node.Generate(), session.RoleLearner), fx.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateEntitled, course.State)
}

func TestPurchaseGrantsAndRefundRevokes(t *testing.T) {
	svc, db, node := newTestService(t, nil)
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		Title: "Paid", Price: 10000, Published: true, Chapters: 1, LessonsPerChapter: 1,
	})
	learner := node.Generate()
	ctx := viewerCtx(learner, session.RoleLearner)

	decision, err := svc.Resolve(ctx, fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticatedUnentitled, decision.State)
	assert.ErrorIs(t, domain.Authorize(decision), domain.ErrNotEntitled)

	purchaseID := testutil.SeedPurchase(t, db, node, learner, fx.ID, fx.CreatorID, 10000, "completed", time.Now())

	decision, err = svc.Resolve(ctx, fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateEntitled, decision.State)
	assert.Equal(t, domain.ReasonPurchased, decision.Reason)

	require.NoError(t, db.Exec(`UPDATE purchases SET status = 'refunded' WHERE id = ?`, purchaseID).Error)

	course, err := svc.ResolveCourse(ctx, fx.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticatedUnentitled, course.State)
}

func TestStoreFailureFailsClosed(t *testing.T) {
	svc, db, node := newTestService(t, failingPurchaseRepo{Repository: repository.Provide()})
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		Title: "Paid", Price: 10000, Published: true, Chapters: 1, LessonsPerChapter: 1,
	})

	decision, err := svc.Resolve(viewerCtx(node.Generate(), session.RoleLearner), fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticatedUnentitled, decision.State)
	assert.Equal(t, domain.ReasonStoreError, decision.Reason)
}

func TestUnpublishedCourseVisibleToCreatorAndAdministratorOnly(t *testing.T) {
	svc, db, node := newTestService(t, nil)
	creator := node.Generate()
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		CreatorID: creator, Title: "Draft", Price: 0, Chapters: 1, LessonsPerChapter: 1,
	})

	_, err := svc.Resolve(viewerCtx(node.Generate(), session.RoleLearner), fx.LessonIDs[0].String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ResolveCourse(context.Background(), fx.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	decision, err := svc.Resolve(viewerCtx(creator, session.RoleCreator), fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateEntitled, decision.State)

	_, err = svc.ResolveCourse(viewerCtx(node.Generate(), session.RoleAdministrator), fx.ID.String())
	assert.NoError(t, err)
}

func TestLessonWithoutMedia(t *testing.T) {
	svc, db, node := newTestService(t, nil)
	fx := testutil.SeedCourse(t, db, node, testutil.CourseSeed{
		Title: "Free", Published: true, Chapters: 1, LessonsPerChapter: 1, WithoutMedia: true,
	})

	decision, err := svc.Resolve(context.Background(), fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.False(t, decision.MediaAvailable)
	assert.Empty(t, decision.MediaID)
}

func TestResolveRejectsBadIDs(t *testing.T) {
	svc, _, node := newTestService(t, nil)

	_, err := svc.Resolve(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Resolve(context.Background(), node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestZeroDecisionDeniesAccess(t *testing.T) {
	var decision domain.Decision
	assert.Equal(t, domain.StateLoading, decision.State)
	assert.ErrorIs(t, domain.Authorize(decision), domain.ErrNotEntitled)
}
