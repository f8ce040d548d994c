package domain

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/coursemart/internal/config"
)

// CheckReadiness evaluates every publish precondition and reports all of
// the failing ones at once.
func CheckReadiness(structure CourseStructure, bounds config.TagBounds) error {
	var missing []string

	if strings.TrimSpace(structure.Course.Title) == "" {
		missing = append(missing, "title is empty")
	}
	if strings.TrimSpace(structure.Course.Description) == "" {
		missing = append(missing, "description is empty")
	}
	if len(structure.Chapters) == 0 {
		missing = append(missing, "no chapters")
	}
	for _, chapter := range structure.Chapters {
		if len(chapter.Lessons) == 0 {
			missing = append(missing, fmt.Sprintf("chapter %q has no lessons", chapter.Title))
		}
	}

	tags := len(structure.Tags)
	if tags < bounds.Min {
		missing = append(missing, fmt.Sprintf("at least %d tags required", bounds.Min))
	}
	if bounds.Max > 0 && tags > bounds.Max {
		missing = append(missing, fmt.Sprintf("at most %d tags allowed", bounds.Max))
	}

	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing}
}
