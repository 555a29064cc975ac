package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. The unique indexes here are the
// concurrency-control mechanism for the whole engine.
type UserModel struct {
	ID          string    `gorm:"primaryKey"`
	Email       string    `gorm:"uniqueIndex;not null"`
	FirstName   string    `gorm:"not null"`
	LastName    string    `gorm:"not null"`
	LMSUserID   int64     `gorm:"index"`
	LMSUsername string    ``
	LMSPassword string    ``
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type CourseModel struct {
	ID              string `gorm:"primaryKey"`
	LMSCourseID     int64  `gorm:"uniqueIndex;not null"`
	Title           string `gorm:"not null"`
	Slug            string `gorm:"index;not null"`
	Description     string `gorm:"type:text"`
	CategoryID      string `gorm:"index"`
	Visible         bool   `gorm:"not null;default:true"`
	PriceCents      int64  `gorm:"not null;default:0"`
	Currency        string `gorm:"not null;default:''"`
	LocalImagePath  string
	ImageMimeType   string
	ImageModifiedAt time.Time
	ImageSizeBytes  int64
	SourcePayload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

type EnrollmentModel struct {
	ID              string    `gorm:"primaryKey"`
	UserID          string    `gorm:"not null;uniqueIndex:idx_enrollments_user_course"`
	CourseID        string    `gorm:"not null;uniqueIndex:idx_enrollments_user_course"`
	Status          string    `gorm:"not null"`
	LMSEnrollmentID int64     ``
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type CategoryModel struct {
	ID            string    `gorm:"primaryKey"`
	Slug          string    `gorm:"uniqueIndex;not null"`
	Name          string    `gorm:"not null"`
	LMSCategoryID int64     `gorm:"index"`
	CreatedAt     time.Time `gorm:"not null"`
}

type ReviewModel struct {
	ID        string    `gorm:"primaryKey"`
	CourseID  string    `gorm:"not null;index"`
	UserID    string    `gorm:"not null;index"`
	Rating    int       `gorm:"not null"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

type CourseStatsModel struct {
	CourseID        string    `gorm:"primaryKey"`
	EnrollmentCount int64     `gorm:"not null"`
	ReviewCount     int64     `gorm:"not null"`
	AverageRating   float64   `gorm:"not null"`
	ComputedAt      time.Time `gorm:"not null"`
}
