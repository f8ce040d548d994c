package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Course struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CreatorID   snowflake.ID `gorm:"not null;index" json:"creator_id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"not null" json:"description"`
	Price       int64        `gorm:"not null" json:"price"`
	Currency    string       `gorm:"not null" json:"currency"`
	Slug        *string      `json:"slug,omitempty"`
	Published   bool         `gorm:"not null" json:"published"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

// IsFree reports whether the course is given away without checkout.
func (c Course) IsFree() bool { return c.Price == 0 }

type Chapter struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CourseID  snowflake.ID `gorm:"not null;index" json:"course_id"`
	Title     string       `gorm:"not null" json:"title"`
	Position  int          `gorm:"not null" json:"position"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Chapter) TableName() string { return "chapters" }

type Lesson struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CourseID  snowflake.ID `gorm:"not null;index" json:"course_id"`
	ChapterID snowflake.ID `gorm:"not null;index" json:"chapter_id"`
	Title     string       `gorm:"not null" json:"title"`
	Position  int          `gorm:"not null" json:"position"`
	IsPreview bool         `gorm:"not null" json:"is_preview"`
	MediaID   *string      `json:"media_id,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lessons" }

// HasMedia is false for lessons that are not yet available to play.
func (l Lesson) HasMedia() bool {
	return l.MediaID != nil && strings.TrimSpace(*l.MediaID) != ""
}

func (l Lesson) Media() string {
	if !l.HasMedia() {
		return ""
	}
	return strings.TrimSpace(*l.MediaID)
}

type Tag struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Tag) TableName() string { return "tags" }

type Account struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Role        string       `gorm:"not null" json:"role"`
	DisplayName string       `gorm:"not null" json:"display_name"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

// ChapterStructure is a chapter with its ordered lessons.
type ChapterStructure struct {
	Chapter
	Lessons []Lesson `json:"lessons"`
}

// CourseStructure is everything the editor and the readiness check look at.
type CourseStructure struct {
	Course   Course             `json:"course"`
	Chapters []ChapterStructure `json:"chapters"`
	Tags     []Tag              `json:"tags"`
}

// Lessons flattens the structure in chapter order.
func (s CourseStructure) Lessons() []Lesson {
	var lessons []Lesson
	for _, chapter := range s.Chapters {
		lessons = append(lessons, chapter.Lessons...)
	}
	return lessons
}
