package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/authorization"
	"github.com/smallbiznis/coursemart/internal/catalog/domain"
	"github.com/smallbiznis/coursemart/internal/catalog/repository"
	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"github.com/smallbiznis/coursemart/internal/session"
	"github.com/smallbiznis/coursemart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mediaHostMock struct {
	mock.Mock
}

func (m *mediaHostMock) ReleaseMedia(ctx context.Context, mediaID string) error {
	args := m.Called(ctx, mediaID)
	return args.Error(0)
}

func (m *mediaHostMock) CreateUpload(ctx context.Context, title string) (videohost.UploadSession, error) {
	args := m.Called(ctx, title)
	return args.Get(0).(videohost.UploadSession), args.Error(1)
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	media *mediaHostMock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	node := testutil.NewNode(t, 1)
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	media := &mediaHostMock{}

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Authz:    authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		Media:    media,
		Commerce: config.NewStaticCommerceConfigHolder(config.DefaultCommerceConfig()),
	})
	return fixture{svc: svc, db: db, node: node, media: media}
}

func creatorCtx(id snowflake.ID) context.Context {
	return session.WithViewer(context.Background(), session.Viewer{AccountID: id, Role: session.RoleCreator})
}

func strPtr(v string) *string { return &v }

func TestPublishFailsWithoutChaptersThenSucceeds(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	ctx := creatorCtx(creator)
	testutil.SeedTag(t, f.db, f.node, "golang")

	course, err := f.svc.CreateCourse(ctx, domain.CreateCourseRequest{Title: "Go Services", Description: "Build APIs", Price: 10000})
	require.NoError(t, err)
	assert.Equal(t, "KRW", course.Currency)

	tags := []string{"golang"}
	_, err = f.svc.Publish(ctx, course.ID.String(), domain.CourseEdits{Tags: &tags})
	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{"no chapters"}, validationErr.Missing)

	chapter, err := f.svc.AddChapter(ctx, course.ID.String(), domain.AddChapterRequest{Title: "Intro"})
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, course.ID.String(), domain.CourseEdits{})
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{`chapter "Intro" has no lessons`}, validationErr.Missing)

	_, err = f.svc.AddLesson(ctx, course.ID.String(), domain.AddLessonRequest{ChapterID: chapter.ID.String(), Title: "Welcome", MediaID: "m-1"})
	require.NoError(t, err)

	published, err := f.svc.Publish(ctx, course.ID.String(), domain.CourseEdits{Title: strPtr("Go Services in Practice")})
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)
	require.NotNil(t, published.Slug)
	assert.Equal(t, "go-services-in-practice-"+course.ID.Base36(), *published.Slug)
	assert.Equal(t, "Go Services in Practice", published.Title)
}

func TestPublishKeepsEditsWhenValidationFails(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	ctx := creatorCtx(creator)

	course, err := f.svc.CreateCourse(ctx, domain.CreateCourseRequest{Title: "Draft", Price: 0})
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, course.ID.String(), domain.CourseEdits{Description: strPtr("Now described")})
	require.Error(t, err)

	structure, err := f.svc.GetCourse(ctx, course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Now described", structure.Course.Description)
	assert.False(t, structure.Course.Published)
}

func TestPublishRejectsUnknownTags(t *testing.T) {
	f := newFixture(t)
	ctx := creatorCtx(f.node.Generate())
	course, err := f.svc.CreateCourse(ctx, domain.CreateCourseRequest{Title: "T"})
	require.NoError(t, err)

	tags := []string{"missing"}
	_, err = f.svc.SaveDraft(ctx, course.ID.String(), domain.CourseEdits{Tags: &tags})
	assert.ErrorIs(t, err, domain.ErrUnknownTag)
}

func TestCheckReadinessReport(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{
		CreatorID: creator, Title: "Ready", Description: "Yes", Price: 5000,
		Chapters: 1, LessonsPerChapter: 2, TagCodes: []string{"go"},
	})

	report, err := f.svc.CheckReadiness(creatorCtx(creator), fx.ID.String())
	require.NoError(t, err)
	assert.True(t, report.Ready)
	assert.Empty(t, report.Missing)
}

func TestUnpublishRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{CreatorID: creator, Title: "T", Published: true})
	ctx := creatorCtx(creator)

	_, err := f.svc.Unpublish(ctx, fx.ID.String(), false)
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)

	course, err := f.svc.Unpublish(ctx, fx.ID.String(), true)
	require.NoError(t, err)
	assert.False(t, course.Published)
	assert.Nil(t, course.PublishedAt)
}

func TestOnlyOwnerOrAdministratorMutates(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{CreatorID: creator, Title: "T"})

	_, err := f.svc.AddChapter(creatorCtx(f.node.Generate()), fx.ID.String(), domain.AddChapterRequest{Title: "x"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	learner := session.WithViewer(context.Background(), session.Viewer{AccountID: f.node.Generate(), Role: session.RoleLearner})
	_, err = f.svc.CreateCourse(learner, domain.CreateCourseRequest{Title: "x"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.AddChapter(context.Background(), fx.ID.String(), domain.AddChapterRequest{Title: "x"})
	assert.ErrorIs(t, err, session.ErrAuthRequired)

	admin := session.WithViewer(context.Background(), session.Viewer{AccountID: f.node.Generate(), Role: session.RoleAdministrator})
	_, err = f.svc.AddChapter(admin, fx.ID.String(), domain.AddChapterRequest{Title: "x"})
	assert.NoError(t, err)

	_, err = f.svc.GetCourse(admin, f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCourseReleasesMediaFirst(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{
		CreatorID: creator, Title: "T", Chapters: 1, LessonsPerChapter: 2, TagCodes: []string{"go"},
	})
	for _, mediaID := range fx.MediaIDs {
		f.media.On("ReleaseMedia", mock.Anything, mediaID).Return(nil).Once()
	}

	require.NoError(t, f.svc.DeleteCourse(creatorCtx(creator), fx.ID.String()))
	f.media.AssertExpectations(t)

	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM courses WHERE id = ?`, 0, fx.ID)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM lessons WHERE course_id = ?`, 0, fx.ID)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM chapters WHERE course_id = ?`, 0, fx.ID)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM course_tags WHERE course_id = ?`, 0, fx.ID)
}

func TestDeleteCourseAbortsOnReleaseFailure(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{
		CreatorID: creator, Title: "T", Chapters: 1, LessonsPerChapter: 2,
	})
	first, second := fx.LessonIDs[0], fx.LessonIDs[1]
	f.media.On("ReleaseMedia", mock.Anything, fx.MediaIDs[first]).Return(nil).Once()
	f.media.On("ReleaseMedia", mock.Anything, fx.MediaIDs[second]).Return(errors.New("host down")).Once()

	err := f.svc.DeleteCourse(creatorCtx(creator), fx.ID.String())
	var releaseErr *domain.MediaReleaseError
	require.True(t, errors.As(err, &releaseErr))
	assert.Equal(t, fx.MediaIDs[second], releaseErr.MediaID)

	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM courses WHERE id = ?`, 1, fx.ID)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM lessons WHERE id = ? AND media_id IS NULL`, 1, first)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM lessons WHERE id = ? AND media_id IS NOT NULL`, 1, second)
}

func TestDeleteLessonAndAttachMedia(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	ctx := creatorCtx(creator)
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{
		CreatorID: creator, Title: "T", Chapters: 1, LessonsPerChapter: 2,
	})
	lessonID := fx.LessonIDs[0]

	f.media.On("ReleaseMedia", mock.Anything, fx.MediaIDs[lessonID]).Return(nil).Once()
	lesson, err := f.svc.AttachMedia(ctx, lessonID.String(), "m-new")
	require.NoError(t, err)
	assert.Equal(t, "m-new", lesson.Media())

	f.media.On("ReleaseMedia", mock.Anything, "m-new").Return(nil).Once()
	require.NoError(t, f.svc.DeleteLesson(ctx, lessonID.String()))
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM lessons WHERE id = ?`, 0, lessonID)
	f.media.AssertExpectations(t)
}

func TestCreateUploadSession(t *testing.T) {
	f := newFixture(t)
	creator := f.node.Generate()
	fx := testutil.SeedCourse(t, f.db, f.node, testutil.CourseSeed{CreatorID: creator, Title: "T", Chapters: 1, LessonsPerChapter: 1})

	f.media.On("CreateUpload", mock.Anything, "Lesson 1.1").
		Return(videohost.UploadSession{MediaID: "m-up", UploadURL: "https://u", Protocol: "tus"}, nil).Once()

	upload, err := f.svc.CreateUploadSession(creatorCtx(creator), fx.LessonIDs[0].String())
	require.NoError(t, err)
	assert.Equal(t, "m-up", upload.MediaID)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	admin := session.WithViewer(context.Background(), session.Viewer{AccountID: f.node.Generate(), Role: session.RoleAdministrator})

	tag, err := f.svc.CreateTag(admin, domain.CreateTagRequest{Code: "Web Dev", Name: "Web development"})
	require.NoError(t, err)
	assert.Equal(t, "web-dev", tag.Code)

	_, err = f.svc.CreateTag(admin, domain.CreateTagRequest{Code: "web-dev"})
	assert.ErrorIs(t, err, domain.ErrTagExists)

	_, err = f.svc.CreateTag(creatorCtx(f.node.Generate()), domain.CreateTagRequest{Code: "x"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	tags, err := f.svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}
