package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/config"
	"gorm.io/gorm"
)

// CourseSeed describes a course to insert. Chapters each receive
// LessonsPerChapter lessons; the first PreviewLessons lessons of the first
// chapter are previews.
type CourseSeed struct {
	CreatorID         snowflake.ID
	Title             string
	Description       string
	Price             int64
	Currency          string
	Published         bool
	Chapters          int
	LessonsPerChapter int
	PreviewLessons    int
	WithoutMedia      bool
	TagCodes          []string
}

type CourseFixture struct {
	ID         snowflake.ID
	CreatorID  snowflake.ID
	Price      int64
	ChapterIDs []snowflake.ID
	LessonIDs  []snowflake.ID
	PreviewIDs []snowflake.ID
	PaidIDs    []snowflake.ID
	MediaIDs   map[snowflake.ID]string
	TagIDs     []snowflake.ID
}

func SeedCourse(t *testing.T, db *gorm.DB, node *snowflake.Node, seed CourseSeed) CourseFixture {
	t.Helper()

	now := time.Now().UTC()
	if seed.CreatorID == 0 {
		seed.CreatorID = node.Generate()
	}
	if seed.Currency == "" {
		seed.Currency = "KRW"
	}

	fx := CourseFixture{
		ID:        node.Generate(),
		CreatorID: seed.CreatorID,
		Price:     seed.Price,
		MediaIDs:  map[snowflake.ID]string{},
	}

	var publishedAt *time.Time
	if seed.Published {
		publishedAt = &now
	}
	mustExec(t, db,
		`INSERT INTO courses (id, creator_id, title, description, price, currency, published, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fx.ID, seed.CreatorID, seed.Title, seed.Description, seed.Price, seed.Currency, seed.Published, publishedAt, now, now,
	)

	for c := 0; c < seed.Chapters; c++ {
		chapterID := node.Generate()
		fx.ChapterIDs = append(fx.ChapterIDs, chapterID)
		mustExec(t, db,
			`INSERT INTO chapters (id, course_id, title, position, created_at) VALUES (?, ?, ?, ?, ?)`,
			chapterID, fx.ID, fmt.Sprintf("Chapter %d", c+1), c, now,
		)
		for l := 0; l < seed.LessonsPerChapter; l++ {
			lessonID := node.Generate()
			preview := c == 0 && l < seed.PreviewLessons
			var mediaID *string
			if !seed.WithoutMedia {
				value := fmt.Sprintf("media-%s", lessonID)
				mediaID = &value
				fx.MediaIDs[lessonID] = value
			}
			mustExec(t, db,
				`INSERT INTO lessons (id, course_id, chapter_id, title, position, is_preview, media_id, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				lessonID, fx.ID, chapterID, fmt.Sprintf("Lesson %d.%d", c+1, l+1), l, preview, mediaID, now, now,
			)
			fx.LessonIDs = append(fx.LessonIDs, lessonID)
			if preview {
				fx.PreviewIDs = append(fx.PreviewIDs, lessonID)
			} else {
				fx.PaidIDs = append(fx.PaidIDs, lessonID)
			}
		}
	}

	for _, code := range seed.TagCodes {
		tagID := SeedTag(t, db, node, code)
		mustExec(t, db, `INSERT INTO course_tags (course_id, tag_id) VALUES (?, ?)`, fx.ID, tagID)
		fx.TagIDs = append(fx.TagIDs, tagID)
	}

	return fx
}

// SeedTag inserts a tag or returns the existing one with the same code.
func SeedTag(t *testing.T, db *gorm.DB, node *snowflake.Node, code string) snowflake.ID {
	t.Helper()

	var existing snowflake.ID
	if err := db.Raw(`SELECT id FROM tags WHERE code = ?`, code).Scan(&existing).Error; err != nil {
		t.Fatalf("lookup tag: %v", err)
	}
	if existing != 0 {
		return existing
	}
	id := node.Generate()
	mustExec(t, db, `INSERT INTO tags (id, code, name, created_at) VALUES (?, ?, ?, ?)`, id, code, code, time.Now().UTC())
	return id
}

// SeedPurchase inserts a purchase row directly at the default commission.
func SeedPurchase(t *testing.T, db *gorm.DB, node *snowflake.Node, accountID, courseID, creatorID snowflake.ID, amount int64, status string, createdAt time.Time) snowflake.ID {
	t.Helper()
	return SeedPurchaseAtRate(t, db, node, accountID, courseID, creatorID, amount, config.DefaultCommerceConfig().CommissionBPS, status, createdAt)
}

func SeedPurchaseAtRate(t *testing.T, db *gorm.DB, node *snowflake.Node, accountID, courseID, creatorID snowflake.ID, amount, bps int64, status string, createdAt time.Time) snowflake.ID {
	t.Helper()

	id := node.Generate()
	mustExec(t, db,
		`INSERT INTO purchases (id, account_id, course_id, creator_id, amount, currency, commission_bps, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, accountID, courseID, creatorID, amount, "KRW", bps, status, createdAt.UTC(), createdAt.UTC(),
	)
	return id
}

func mustExec(t *testing.T, db *gorm.DB, query string, args ...any) {
	t.Helper()
	if err := db.Exec(query, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
