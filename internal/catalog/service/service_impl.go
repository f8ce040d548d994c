package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/coursemart/internal/authorization"
	"github.com/smallbiznis/coursemart/internal/catalog/domain"
	"github.com/smallbiznis/coursemart/internal/clock"
	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Authz    authorization.Service
	Media    domain.MediaHost
	Commerce *config.CommerceConfigHolder
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	authz    authorization.Service
	media    domain.MediaHost
	commerce *config.CommerceConfigHolder
	clock    clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		authz:    p.Authz,
		media:    p.Media,
		commerce: p.Commerce,
		clock:    clk,
	}
}

func (s *Service) CreateCourse(ctx context.Context, req domain.CreateCourseRequest) (domain.Course, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectCourse, authorization.ActionCourseCreate); err != nil {
		return domain.Course{}, err
	}
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.Course{}, err
	}

	if req.Price < 0 {
		return domain.Course{}, domain.ErrInvalidPrice
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.commerce.Get().Currency
	}
	if len(currency) != 3 {
		return domain.Course{}, domain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	course := domain.Course{
		ID:          s.genID.Generate(),
		CreatorID:   viewer.AccountID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertCourse(ctx, s.db, &course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (s *Service) GetCourse(ctx context.Context, courseID string) (domain.CourseStructure, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseEdit)
	if err != nil {
		return domain.CourseStructure{}, err
	}
	return s.loadStructure(ctx, s.db, *course)
}

func (s *Service) ListCreatorCourses(ctx context.Context) ([]domain.Course, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectCourse, authorization.ActionCourseEdit); err != nil {
		return nil, err
	}
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.ListCoursesByCreator(ctx, s.db, viewer.AccountID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return courses, nil
}

func (s *Service) SaveDraft(ctx context.Context, courseID string, edits domain.CourseEdits) (domain.Course, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseEdit)
	if err != nil {
		return domain.Course{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyEdits(ctx, tx, course, edits)
	})
	if err != nil {
		return domain.Course{}, err
	}
	return *course, nil
}

func (s *Service) AddChapter(ctx context.Context, courseID string, req domain.AddChapterRequest) (domain.Chapter, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseEdit)
	if err != nil {
		return domain.Chapter{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Chapter{}, domain.ErrInvalidTitle
	}

	var chapter domain.Chapter
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := s.repo.NextChapterPosition(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		chapter = domain.Chapter{
			ID:        s.genID.Generate(),
			CourseID:  course.ID,
			Title:     title,
			Position:  position,
			CreatedAt: s.clock.Now(),
		}
		return s.repo.InsertChapter(ctx, tx, &chapter)
	})
	if err != nil {
		return domain.Chapter{}, err
	}
	return chapter, nil
}

func (s *Service) AddLesson(ctx context.Context, courseID string, req domain.AddLessonRequest) (domain.Lesson, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseEdit)
	if err != nil {
		return domain.Lesson{}, err
	}
	chapterID, err := parseID(req.ChapterID)
	if err != nil {
		return domain.Lesson{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Lesson{}, domain.ErrInvalidTitle
	}

	var lesson domain.Lesson
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chapter, err := s.repo.FindChapter(ctx, tx, chapterID)
		if err != nil {
			return err
		}
		if chapter == nil || chapter.CourseID != course.ID {
			return domain.ErrChapterNotFound
		}
		position, err := s.repo.NextLessonPosition(ctx, tx, chapterID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		lesson = domain.Lesson{
			ID:        s.genID.Generate(),
			CourseID:  course.ID,
			ChapterID: chapterID,
			Title:     title,
			Position:  position,
			IsPreview: req.IsPreview,
			MediaID:   optionalString(req.MediaID),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.InsertLesson(ctx, tx, &lesson)
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return lesson, nil
}

func (s *Service) AttachMedia(ctx context.Context, lessonID string, mediaID string) (domain.Lesson, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return domain.Lesson{}, domain.ErrInvalidMedia
	}
	lesson, _, err := s.authorizedLesson(ctx, lessonID)
	if err != nil {
		return domain.Lesson{}, err
	}
	if lesson.Media() == mediaID {
		return *lesson, nil
	}

	// The replaced media is released first so the host never keeps an
	// orphan the catalog forgot about.
	if previous := lesson.Media(); previous != "" {
		if err := s.releaseMedia(ctx, lesson.ID, previous); err != nil {
			return domain.Lesson{}, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateLessonMedia(ctx, s.db, lesson.ID, &mediaID, now); err != nil {
		return domain.Lesson{}, err
	}
	lesson.MediaID = &mediaID
	lesson.UpdatedAt = now
	return *lesson, nil
}

func (s *Service) CreateUploadSession(ctx context.Context, lessonID string) (videohost.UploadSession, error) {
	lesson, _, err := s.authorizedLesson(ctx, lessonID)
	if err != nil {
		return videohost.UploadSession{}, err
	}
	if s.media == nil {
		return videohost.UploadSession{}, domain.ErrMediaHostUnavailable
	}
	upload, err := s.media.CreateUpload(ctx, lesson.Title)
	if err != nil {
		s.log.Warn("create upload session failed", zap.String("lesson_id", lesson.ID.String()), zap.Error(err))
		return videohost.UploadSession{}, errors.Join(domain.ErrMediaHostUnavailable, err)
	}
	return upload, nil
}

func (s *Service) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.repo.ListTags(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return tags, nil
}

func (s *Service) CreateTag(ctx context.Context, req domain.CreateTagRequest) (domain.Tag, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectTag, authorization.ActionTagCreate); err != nil {
		return domain.Tag{}, err
	}
	code := slug.Make(req.Code)
	if code == "" {
		return domain.Tag{}, domain.ErrInvalidTag
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = code
	}

	tag := domain.Tag{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	inserted, err := s.repo.InsertTag(ctx, s.db, &tag)
	if err != nil {
		return domain.Tag{}, err
	}
	if !inserted {
		return domain.Tag{}, domain.ErrTagExists
	}
	return tag, nil
}

func (s *Service) CheckReadiness(ctx context.Context, courseID string) (domain.ReadinessReport, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseEdit)
	if err != nil {
		return domain.ReadinessReport{}, err
	}
	structure, err := s.loadStructure(ctx, s.db, *course)
	if err != nil {
		return domain.ReadinessReport{}, err
	}
	return readinessReport(domain.CheckReadiness(structure, s.commerce.Get().Tags))
}

// Publish saves the edits and then flips the course to published when every
// precondition holds. The edits are kept even when validation fails so the
// editor does not lose work.
func (s *Service) Publish(ctx context.Context, courseID string, edits domain.CourseEdits) (domain.Course, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCoursePublish)
	if err != nil {
		return domain.Course{}, err
	}

	bounds := s.commerce.Get().Tags
	var validationErr error
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyEdits(ctx, tx, course, edits); err != nil {
			return err
		}

		reloaded, err := s.repo.FindCourse(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		if reloaded == nil {
			return domain.ErrNotFound
		}
		structure, err := s.loadStructure(ctx, tx, *reloaded)
		if err != nil {
			return err
		}
		if validationErr = domain.CheckReadiness(structure, bounds); validationErr != nil {
			return nil
		}

		now := s.clock.Now()
		reloaded.Published = true
		if reloaded.PublishedAt == nil {
			reloaded.PublishedAt = &now
		}
		if reloaded.Slug == nil || strings.TrimSpace(*reloaded.Slug) == "" {
			value := courseSlug(*reloaded)
			reloaded.Slug = &value
		}
		reloaded.UpdatedAt = now
		if err := s.repo.UpdatePublication(ctx, tx, reloaded); err != nil {
			return err
		}
		*course = *reloaded
		return nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	if validationErr != nil {
		return domain.Course{}, validationErr
	}

	s.log.Info("course published", zap.String("course_id", course.ID.String()))
	return *course, nil
}

func (s *Service) Unpublish(ctx context.Context, courseID string, confirmed bool) (domain.Course, error) {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCoursePublish)
	if err != nil {
		return domain.Course{}, err
	}
	if !confirmed {
		return domain.Course{}, domain.ErrConfirmationRequired
	}
	if !course.Published {
		return *course, nil
	}

	course.Published = false
	course.PublishedAt = nil
	course.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdatePublication(ctx, s.db, course); err != nil {
		return domain.Course{}, err
	}

	s.log.Info("course unpublished", zap.String("course_id", course.ID.String()))
	return *course, nil
}

// DeleteCourse releases every attached media id before the rows go away.
// A release failure leaves the course in place; lessons whose media was
// already released lose their reference.
func (s *Service) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.authorizedCourse(ctx, courseID, authorization.ActionCourseDelete)
	if err != nil {
		return err
	}

	lessons, err := s.repo.ListLessons(ctx, s.db, course.ID)
	if err != nil {
		return err
	}
	for _, lesson := range lessons {
		if !lesson.HasMedia() {
			continue
		}
		if err := s.releaseMedia(ctx, lesson.ID, lesson.Media()); err != nil {
			return err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.DeleteCourse(ctx, tx, course.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("course deleted",
		zap.String("course_id", course.ID.String()),
		zap.Int("lessons", len(lessons)),
	)
	return nil
}

func (s *Service) DeleteLesson(ctx context.Context, lessonID string) error {
	lesson, _, err := s.authorizedLessonFor(ctx, lessonID, authorization.ActionCourseDelete)
	if err != nil {
		return err
	}
	if lesson.HasMedia() {
		if err := s.releaseMedia(ctx, lesson.ID, lesson.Media()); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.DeleteLesson(ctx, tx, lesson.ID)
	})
}

func (s *Service) releaseMedia(ctx context.Context, lessonID snowflake.ID, mediaID string) error {
	if s.media == nil {
		return &domain.MediaReleaseError{MediaID: mediaID, Cause: domain.ErrMediaHostUnavailable}
	}
	if err := s.media.ReleaseMedia(ctx, mediaID); err != nil {
		s.log.Warn("media release failed",
			zap.String("lesson_id", lessonID.String()),
			zap.String("media_id", mediaID),
			zap.Error(err),
		)
		return &domain.MediaReleaseError{MediaID: mediaID, Cause: err}
	}
	if err := s.repo.UpdateLessonMedia(ctx, s.db, lessonID, nil, s.clock.Now()); err != nil {
		return err
	}
	return nil
}

func (s *Service) applyEdits(ctx context.Context, tx *gorm.DB, course *domain.Course, edits domain.CourseEdits) error {
	changed := false
	if edits.Title != nil {
		course.Title = strings.TrimSpace(*edits.Title)
		changed = true
	}
	if edits.Description != nil {
		course.Description = strings.TrimSpace(*edits.Description)
		changed = true
	}
	if edits.Price != nil {
		if *edits.Price < 0 {
			return domain.ErrInvalidPrice
		}
		course.Price = *edits.Price
		changed = true
	}
	if changed {
		course.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateCourseDraft(ctx, tx, course); err != nil {
			return err
		}
	}

	if edits.Tags == nil {
		return nil
	}
	codes := normalizeCodes(*edits.Tags)
	tags, err := s.repo.FindTagsByCodes(ctx, tx, codes)
	if err != nil {
		return err
	}
	if len(tags) != len(codes) {
		return domain.ErrUnknownTag
	}
	tagIDs := make([]snowflake.ID, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	return s.repo.ReplaceCourseTags(ctx, tx, course.ID, tagIDs)
}

func (s *Service) loadStructure(ctx context.Context, db *gorm.DB, course domain.Course) (domain.CourseStructure, error) {
	chapters, err := s.repo.ListChapters(ctx, db, course.ID)
	if err != nil {
		return domain.CourseStructure{}, err
	}
	lessons, err := s.repo.ListLessons(ctx, db, course.ID)
	if err != nil {
		return domain.CourseStructure{}, err
	}
	tags, err := s.repo.ListCourseTags(ctx, db, course.ID)
	if err != nil {
		return domain.CourseStructure{}, err
	}

	byChapter := make(map[snowflake.ID][]domain.Lesson, len(chapters))
	for _, lesson := range lessons {
		byChapter[lesson.ChapterID] = append(byChapter[lesson.ChapterID], lesson)
	}

	structure := domain.CourseStructure{
		Course:   course,
		Chapters: make([]domain.ChapterStructure, 0, len(chapters)),
		Tags:     tags,
	}
	if structure.Tags == nil {
		structure.Tags = []domain.Tag{}
	}
	for _, chapter := range chapters {
		chapterLessons := byChapter[chapter.ID]
		if chapterLessons == nil {
			chapterLessons = []domain.Lesson{}
		}
		structure.Chapters = append(structure.Chapters, domain.ChapterStructure{
			Chapter: chapter,
			Lessons: chapterLessons,
		})
	}
	return structure, nil
}

func (s *Service) authorizedCourse(ctx context.Context, courseID string, action string) (*domain.Course, error) {
	id, err := parseID(courseID)
	if err != nil {
		return nil, err
	}
	if _, err := session.RequireViewer(ctx); err != nil {
		return nil, err
	}
	course, err := s.repo.FindCourse(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := s.authz.AuthorizeCourse(ctx, course.CreatorID, authorization.ObjectCourse, action); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *Service) authorizedLesson(ctx context.Context, lessonID string) (*domain.Lesson, *domain.Course, error) {
	return s.authorizedLessonFor(ctx, lessonID, authorization.ActionCourseEdit)
}

func (s *Service) authorizedLessonFor(ctx context.Context, lessonID string, action string) (*domain.Lesson, *domain.Course, error) {
	id, err := parseID(lessonID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := session.RequireViewer(ctx); err != nil {
		return nil, nil, err
	}
	lesson, err := s.repo.FindLesson(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	if lesson == nil {
		return nil, nil, domain.ErrLessonNotFound
	}
	course, err := s.authorizedCourse(ctx, lesson.CourseID.String(), action)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}

func readinessReport(err error) (domain.ReadinessReport, error) {
	if err == nil {
		return domain.ReadinessReport{Ready: true, Missing: []string{}}, nil
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return domain.ReadinessReport{Ready: false, Missing: validationErr.Missing}, nil
	}
	return domain.ReadinessReport{}, err
}

func courseSlug(course domain.Course) string {
	base := slug.Make(course.Title)
	if base == "" {
		return course.ID.Base36()
	}
	return base + "-" + course.ID.Base36()
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = slug.Make(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
