package contentsync

import (
	"strings"
	"time"

	"coursebridge/internal/lms"
	"coursebridge/internal/util"
	"coursebridge/pkg/domain"
)

// CourseFromRemote maps an LMS course onto the mirror's sync-owned fields.
// Pricing, visibility defaults, and the image cache are not set here; the
// store's upsert keeps platform-owned columns untouched on conflict.
func CourseFromRemote(rc lms.RemoteCourse) domain.Course {
	title := strings.TrimSpace(rc.FullName)
	if title == "" {
		title = strings.TrimSpace(rc.ShortName)
	}
	now := time.Now().UTC()
	return domain.Course{
		ID:            util.NewID(),
		LMSCourseID:   rc.ID,
		Title:         title,
		Slug:          util.Slugify(title),
		Description:   strings.TrimSpace(rc.Summary),
		Visible:       rc.Visible != 0,
		SourcePayload: rc.Raw,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CategoryFromRemote maps an LMS category to its slug-keyed local mirror.
func CategoryFromRemote(rc lms.RemoteCategory) domain.Category {
	return domain.Category{
		ID:            util.NewID(),
		Slug:          util.Slugify(rc.Name),
		Name:          strings.TrimSpace(rc.Name),
		LMSCategoryID: rc.ID,
		CreatedAt:     time.Now().UTC(),
	}
}
