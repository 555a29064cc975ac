package store

import (
	"time"

	"coursebridge/pkg/domain"
)

// Store defines persistence for the entities this engine touches. Every
// mutating method is an upsert or conditional update keyed on a unique
// constraint, which is what makes concurrent and retried invocations safe
// without explicit locks.
type Store interface {
	// platform users
	GetPlatformUser(id string) (domain.PlatformUser, bool, error)
	GetPlatformUserByEmail(email string) (domain.PlatformUser, bool, error)
	SaveLMSBinding(userID string, lmsUserID int64, username, password string) error

	// courses (sync never writes pricing, visibility, or image columns here)
	GetCourse(id string) (domain.Course, bool, error)
	GetCourseByLMSID(lmsCourseID int64) (domain.Course, bool, error)
	ListCourses() ([]domain.Course, error)
	UpsertCourse(course domain.Course) (domain.Course, error)
	SetCourseImage(courseID, path, mimeType string, modifiedAt time.Time, sizeBytes int64) error

	// enrollments
	GetEnrollment(userID, courseID string) (domain.Enrollment, bool, error)
	UpsertEnrollment(enrollment domain.Enrollment) error
	CourseEnrollmentCount(courseID string) (int64, error)

	// categories
	GetCategoryBySlug(slug string) (domain.Category, bool, error)
	ListCategories() ([]domain.Category, error)
	UpsertCategory(category domain.Category) (domain.Category, error)

	// analytics
	CourseReviewStats(courseID string) (count int64, avg float64, err error)
	SaveCourseStats(stats domain.CourseStats) error
}
