package domain

import (
	"github.com/bwmarrin/snowflake"
)

// State is the outcome of an entitlement resolution. The zero value is
// Loading, which never authorizes anything.
type State int

const (
	StateLoading State = iota
	StateAnonymousViewer
	StateAuthenticatedUnentitled
	StateEntitled
)

func (s State) String() string {
	switch s {
	case StateAnonymousViewer:
		return "anonymous_viewer"
	case StateAuthenticatedUnentitled:
		return "authenticated_unentitled"
	case StateEntitled:
		return "entitled"
	default:
		return "loading"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	ReasonPreview      = "preview"
	ReasonFreeCourse   = "free_course"
	ReasonNoViewer     = "no_viewer"
	ReasonPurchased    = "purchased"
	ReasonNotPurchased = "not_purchased"
	ReasonStoreError   = "store_error"
)

type Decision struct {
	State          State        `json:"state"`
	LessonID       snowflake.ID `json:"lesson_id,omitempty"`
	CourseID       snowflake.ID `json:"course_id"`
	IsPreview      bool         `json:"is_preview"`
	MediaAvailable bool         `json:"media_available"`
	Reason         string       `json:"reason"`

	// MediaID is handed to the playback gateway only.
	MediaID string `json:"-"`
}

// LessonAccess is the slice of a lesson and its course the resolver reads.
type LessonAccess struct {
	LessonID  snowflake.ID
	CourseID  snowflake.ID
	CreatorID snowflake.ID
	IsPreview bool
	MediaID   *string
	Price     int64
	Published bool
}

type CourseAccess struct {
	CourseID  snowflake.ID
	CreatorID snowflake.ID
	Price     int64
	Published bool
}
