package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursebridge/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{}, &CourseModel{}, &EnrollmentModel{},
		&CategoryModel{}, &ReviewModel{}, &CourseStatsModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetPlatformUser looks up a platform user by ID.
func (s *GormStore) GetPlatformUser(id string) (domain.PlatformUser, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.PlatformUser{}, false, nil
		}
		return domain.PlatformUser{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetPlatformUserByEmail looks up a platform user by email.
func (s *GormStore) GetPlatformUserByEmail(email string) (domain.PlatformUser, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.PlatformUser{}, false, nil
		}
		return domain.PlatformUser{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveLMSBinding persists the reconciled LMS identity onto the user row.
func (s *GormStore) SaveLMSBinding(userID string, lmsUserID int64, username, password string) error {
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"lms_user_id":  lmsUserID,
			"lms_username": username,
			"lms_password": password,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// GetCourse retrieves a course by local ID.
func (s *GormStore) GetCourse(id string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return courseFromModel(model), true, nil
}

// GetCourseByLMSID retrieves a course by its LMS key.
func (s *GormStore) GetCourseByLMSID(lmsCourseID int64) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.Where("lms_course_id = ?", lmsCourseID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return courseFromModel(model), true, nil
}

// ListCourses returns all courses ordered by created_at.
func (s *GormStore) ListCourses() ([]domain.Course, error) {
	var models []CourseModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Course, 0, len(models))
	for _, m := range models {
		res = append(res, courseFromModel(m))
	}
	return res, nil
}

// UpsertCourse inserts or updates a course keyed on lms_course_id. Only the
// sync-owned metadata columns are updated on conflict; pricing, visibility,
// and the image cache are left alone.
func (s *GormStore) UpsertCourse(course domain.Course) (domain.Course, error) {
	model := courseToModel(course)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lms_course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "slug", "description", "category_id", "source_payload", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return domain.Course{}, err
	}
	stored, ok, err := s.GetCourseByLMSID(course.LMSCourseID)
	if err != nil {
		return domain.Course{}, err
	}
	if !ok {
		return domain.Course{}, fmt.Errorf("course %d missing after upsert", course.LMSCourseID)
	}
	return stored, nil
}

// SetCourseImage records a successful cover download.
func (s *GormStore) SetCourseImage(courseID, path, mimeType string, modifiedAt time.Time, sizeBytes int64) error {
	return s.db.Model(&CourseModel{}).
		Where("id = ?", courseID).
		Updates(map[string]any{
			"local_image_path":  path,
			"image_mime_type":   mimeType,
			"image_modified_at": modifiedAt,
			"image_size_bytes":  sizeBytes,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// GetEnrollment looks up the enrollment for a (user, course) pair.
func (s *GormStore) GetEnrollment(userID, courseID string) (domain.Enrollment, bool, error) {
	var model EnrollmentModel
	if err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Enrollment{}, false, nil
		}
		return domain.Enrollment{}, false, err
	}
	return enrollmentFromModel(model), true, nil
}

// UpsertEnrollment inserts or updates keyed on (user_id, course_id), so
// repeated coordinator invocations converge on a single row.
func (s *GormStore) UpsertEnrollment(enrollment domain.Enrollment) error {
	model := enrollmentToModel(enrollment)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "lms_enrollment_id", "updated_at"}),
	}).Create(&model).Error
}

// CourseEnrollmentCount counts enrollments for a course.
func (s *GormStore) CourseEnrollmentCount(courseID string) (int64, error) {
	var count int64
	err := s.db.Model(&EnrollmentModel{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// GetCategoryBySlug looks up a category by slug.
func (s *GormStore) GetCategoryBySlug(slug string) (domain.Category, bool, error) {
	var model CategoryModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return categoryFromModel(model), true, nil
}

// ListCategories returns all categories ordered by slug.
func (s *GormStore) ListCategories() ([]domain.Category, error) {
	var models []CategoryModel
	if err := s.db.Order("slug ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, categoryFromModel(m))
	}
	return res, nil
}

// UpsertCategory inserts or updates keyed on slug.
func (s *GormStore) UpsertCategory(category domain.Category) (domain.Category, error) {
	model := categoryToModel(category)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "lms_category_id"}),
	}).Create(&model).Error
	if err != nil {
		return domain.Category{}, err
	}
	stored, ok, err := s.GetCategoryBySlug(category.Slug)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, fmt.Errorf("category %q missing after upsert", category.Slug)
	}
	return stored, nil
}

// CourseReviewStats aggregates local review data for one course.
func (s *GormStore) CourseReviewStats(courseID string) (int64, float64, error) {
	var result struct {
		Count int64
		Avg   float64
	}
	err := s.db.Model(&ReviewModel{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
		Where("course_id = ?", courseID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}
	return result.Count, result.Avg, nil
}

// SaveCourseStats replaces the analytics projection for one course.
func (s *GormStore) SaveCourseStats(stats domain.CourseStats) error {
	model := CourseStatsModel{
		CourseID:        stats.CourseID,
		EnrollmentCount: stats.EnrollmentCount,
		ReviewCount:     stats.ReviewCount,
		AverageRating:   stats.AverageRating,
		ComputedAt:      stats.ComputedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enrollment_count", "review_count", "average_rating", "computed_at"}),
	}).Create(&model).Error
}

func userFromModel(m UserModel) domain.PlatformUser {
	return domain.PlatformUser{
		ID:          m.ID,
		Email:       m.Email,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		LMSUserID:   m.LMSUserID,
		LMSUsername: m.LMSUsername,
		LMSPassword: m.LMSPassword,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func courseToModel(c domain.Course) CourseModel {
	return CourseModel{
		ID:              c.ID,
		LMSCourseID:     c.LMSCourseID,
		Title:           c.Title,
		Slug:            c.Slug,
		Description:     c.Description,
		CategoryID:      c.CategoryID,
		Visible:         c.Visible,
		PriceCents:      c.PriceCents,
		Currency:        c.Currency,
		LocalImagePath:  c.LocalImagePath,
		ImageMimeType:   c.ImageMimeType,
		ImageModifiedAt: c.ImageModifiedAt,
		ImageSizeBytes:  c.ImageSizeBytes,
		SourcePayload:   c.SourcePayload,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func courseFromModel(m CourseModel) domain.Course {
	return domain.Course{
		ID:              m.ID,
		LMSCourseID:     m.LMSCourseID,
		Title:           m.Title,
		Slug:            m.Slug,
		Description:     m.Description,
		CategoryID:      m.CategoryID,
		Visible:         m.Visible,
		PriceCents:      m.PriceCents,
		Currency:        m.Currency,
		LocalImagePath:  m.LocalImagePath,
		ImageMimeType:   m.ImageMimeType,
		ImageModifiedAt: m.ImageModifiedAt,
		ImageSizeBytes:  m.ImageSizeBytes,
		SourcePayload:   m.SourcePayload,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func enrollmentToModel(e domain.Enrollment) EnrollmentModel {
	return EnrollmentModel{
		ID:              e.ID,
		UserID:          e.UserID,
		CourseID:        e.CourseID,
		Status:          string(e.Status),
		LMSEnrollmentID: e.LMSEnrollmentID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func enrollmentFromModel(m EnrollmentModel) domain.Enrollment {
	return domain.Enrollment{
		ID:              m.ID,
		UserID:          m.UserID,
		CourseID:        m.CourseID,
		Status:          domain.EnrollmentStatus(m.Status),
		LMSEnrollmentID: m.LMSEnrollmentID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func categoryToModel(c domain.Category) CategoryModel {
	return CategoryModel{
		ID:            c.ID,
		Slug:          c.Slug,
		Name:          c.Name,
		LMSCategoryID: c.LMSCategoryID,
		CreatedAt:     c.CreatedAt,
	}
}

func categoryFromModel(m CategoryModel) domain.Category {
	return domain.Category{
		ID:            m.ID,
		Slug:          m.Slug,
		Name:          m.Name,
		LMSCategoryID: m.LMSCategoryID,
		CreatedAt:     m.CreatedAt,
	}
}
