// Package enroll grants a reconciled identity access to a course on both
// the LMS and the local store, idempotently: any number of invocations for
// the same (user, course) pair converge on one LMS roster entry and one
// local enrollment row.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coursebridge/internal/contentsync"
	"coursebridge/internal/lms"
	"coursebridge/internal/store"
	"coursebridge/internal/util"
	"coursebridge/pkg/domain"
)

// ErrCourseNotFound means the LMS has no course under the requested id.
var ErrCourseNotFound = errors.New("course not found")

// Coordinator ensures enrollments across both systems.
type Coordinator struct {
	api   lms.API
	store store.Store
}

// New constructs a Coordinator.
func New(api lms.API, st store.Store) *Coordinator {
	return &Coordinator{api: api, store: st}
}

// Ensure enrolls the identity in the LMS course and upserts the matching
// local row with status active. The LMS call is idempotent by construction
// (membership is checked first) and the local write is an upsert on the
// (user_id, course_id) unique key, so Ensure is safe to call repeatedly.
func (c *Coordinator) Ensure(ctx context.Context, userID string, identity domain.ResolvedIdentity, lmsCourseID int64) (domain.Enrollment, error) {
	result, err := c.api.Enroll(ctx, lmsCourseID, identity.LMSUserID, lms.RoleStudent)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("enroll on lms: %w", err)
	}
	if result.Enrolled {
		slog.Info("lms enrollment created", "lms_course_id", lmsCourseID, "lms_user_id", identity.LMSUserID)
	}

	course, err := c.ensureCourse(ctx, lmsCourseID)
	if err != nil {
		return domain.Enrollment{}, err
	}

	now := time.Now().UTC()
	enrollment := domain.Enrollment{
		ID:        util.NewID(),
		UserID:    userID,
		CourseID:  course.ID,
		Status:    domain.EnrollmentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.UpsertEnrollment(enrollment); err != nil {
		return domain.Enrollment{}, fmt.Errorf("upsert enrollment: %w", err)
	}
	stored, ok, err := c.store.GetEnrollment(userID, course.ID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	if !ok {
		return domain.Enrollment{}, errors.New("enrollment missing after upsert")
	}
	return stored, nil
}

// ensureCourse returns the local mirror row for an LMS course, fetching and
// inserting it first when the sync pass has not seen it yet.
func (c *Coordinator) ensureCourse(ctx context.Context, lmsCourseID int64) (domain.Course, error) {
	course, ok, err := c.store.GetCourseByLMSID(lmsCourseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch course: %w", err)
	}
	if ok {
		return course, nil
	}
	remote, found, err := c.api.GetCourseByID(ctx, lmsCourseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch lms course: %w", err)
	}
	if !found {
		return domain.Course{}, fmt.Errorf("lms course %d: %w", lmsCourseID, ErrCourseNotFound)
	}
	stored, err := c.store.UpsertCourse(contentsync.CourseFromRemote(remote))
	if err != nil {
		return domain.Course{}, fmt.Errorf("upsert course: %w", err)
	}
	return stored, nil
}
