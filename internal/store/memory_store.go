package store

import (
	"sync"
	"time"

	"coursebridge/internal/util"
	"coursebridge/pkg/domain"
)

// MemoryStore keeps everything in-process. Used by tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.PlatformUser // key: user ID
	courses     map[string]domain.Course       // key: course ID
	courseByLMS map[int64]string               // lmsCourseID -> course ID
	enrollments map[string]domain.Enrollment   // key: userID + "/" + courseID
	categories  map[string]domain.Category     // key: slug
	reviews     []domain.Review
	stats       map[string]domain.CourseStats // key: course ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.PlatformUser),
		courses:     make(map[string]domain.Course),
		courseByLMS: make(map[int64]string),
		enrollments: make(map[string]domain.Enrollment),
		categories:  make(map[string]domain.Category),
		stats:       make(map[string]domain.CourseStats),
	}
}

// SeedUser inserts a platform user (test helper; the surrounding app owns
// user creation in production).
func (m *MemoryStore) SeedUser(u domain.PlatformUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// SeedReview inserts a review (test helper).
func (m *MemoryStore) SeedReview(r domain.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, r)
}

func (m *MemoryStore) GetPlatformUser(id string) (domain.PlatformUser, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetPlatformUserByEmail(email string) (domain.PlatformUser, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.PlatformUser{}, false, nil
}

func (m *MemoryStore) SaveLMSBinding(userID string, lmsUserID int64, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	u.LMSUserID = lmsUserID
	u.LMSUsername = username
	u.LMSPassword = password
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) GetCourse(id string) (domain.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	return c, ok, nil
}

func (m *MemoryStore) GetCourseByLMSID(lmsCourseID int64) (domain.Course, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.courseByLMS[lmsCourseID]
	if !ok {
		return domain.Course{}, false, nil
	}
	c, ok := m.courses[id]
	return c, ok, nil
}

func (m *MemoryStore) ListCourses() ([]domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Course, 0, len(m.courses))
	for _, c := range m.courses {
		res = append(res, c)
	}
	return res, nil
}

func (m *MemoryStore) UpsertCourse(course domain.Course) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existingID, ok := m.courseByLMS[course.LMSCourseID]; ok {
		existing := m.courses[existingID]
		existing.Title = course.Title
		existing.Slug = course.Slug
		existing.Description = course.Description
		existing.CategoryID = course.CategoryID
		existing.SourcePayload = course.SourcePayload
		existing.UpdatedAt = time.Now().UTC()
		m.courses[existingID] = existing
		return existing, nil
	}
	if course.ID == "" {
		course.ID = util.NewID()
	}
	m.courses[course.ID] = course
	m.courseByLMS[course.LMSCourseID] = course.ID
	return course, nil
}

func (m *MemoryStore) SetCourseImage(courseID, path, mimeType string, modifiedAt time.Time, sizeBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil
	}
	c.LocalImagePath = path
	c.ImageMimeType = mimeType
	c.ImageModifiedAt = modifiedAt
	c.ImageSizeBytes = sizeBytes
	c.UpdatedAt = time.Now().UTC()
	m.courses[courseID] = c
	return nil
}

func enrollmentKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (m *MemoryStore) GetEnrollment(userID, courseID string) (domain.Enrollment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[enrollmentKey(userID, courseID)]
	return e, ok, nil
}

func (m *MemoryStore) UpsertEnrollment(enrollment domain.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := enrollmentKey(enrollment.UserID, enrollment.CourseID)
	if existing, ok := m.enrollments[key]; ok {
		existing.Status = enrollment.Status
		existing.LMSEnrollmentID = enrollment.LMSEnrollmentID
		existing.UpdatedAt = time.Now().UTC()
		m.enrollments[key] = existing
		return nil
	}
	if enrollment.ID == "" {
		enrollment.ID = util.NewID()
	}
	m.enrollments[key] = enrollment
	return nil
}

func (m *MemoryStore) CourseEnrollmentCount(courseID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) GetCategoryBySlug(slug string) (domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[slug]
	return c, ok, nil
}

func (m *MemoryStore) ListCategories() ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		res = append(res, c)
	}
	return res, nil
}

func (m *MemoryStore) UpsertCategory(category domain.Category) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.categories[category.Slug]; ok {
		existing.Name = category.Name
		existing.LMSCategoryID = category.LMSCategoryID
		m.categories[category.Slug] = existing
		return existing, nil
	}
	if category.ID == "" {
		category.ID = util.NewID()
	}
	m.categories[category.Slug] = category
	return category, nil
}

func (m *MemoryStore) CourseReviewStats(courseID string) (int64, float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	var sum int
	for _, r := range m.reviews {
		if r.CourseID == courseID {
			count++
			sum += r.Rating
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, float64(sum) / float64(count), nil
}

func (m *MemoryStore) SaveCourseStats(stats domain.CourseStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stats.CourseID] = stats
	return nil
}

// GetCourseStats returns the stored projection (test helper).
func (m *MemoryStore) GetCourseStats(courseID string) (domain.CourseStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[courseID]
	return s, ok
}
