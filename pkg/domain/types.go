package domain

import "time"

// EnrollmentStatus tracks the lifecycle of a local enrollment record.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentSuspended EnrollmentStatus = "suspended"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentPending   EnrollmentStatus = "pending"
)

// PlatformUser is the local user record. The LMS fields cache the binding
// to the external account; zero values mean "no binding yet". LMSPassword
// is only set for accounts this engine created itself.
type PlatformUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	LMSUserID   int64     `json:"lmsUserId,omitempty"`
	LMSUsername string    `json:"lmsUsername,omitempty"`
	LMSPassword string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Account is a user record as the LMS reports it.
type Account struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// ResolvedIdentity is the outcome of one reconciliation: the LMS account to
// log in as. LoginEmail is whatever email the LMS has on file, which after a
// uniquified creation differs from the platform email.
type ResolvedIdentity struct {
	LMSUserID  int64  `json:"lmsUserId"`
	Username   string `json:"username"`
	LoginEmail string `json:"loginEmail"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

// Course is the local mirror of an LMS course. Pricing and visibility are
// owned by the platform and never written by sync. The image fields cache
// the last successful cover download; LocalImagePath stays set even when a
// later download attempt fails.
type Course struct {
	ID              string    `json:"id"`
	LMSCourseID     int64     `json:"lmsCourseId"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	CategoryID      string    `json:"categoryId,omitempty"`
	Visible         bool      `json:"visible"`
	PriceCents      int64     `json:"priceCents"`
	Currency        string    `json:"currency"`
	LocalImagePath  string    `json:"localImagePath,omitempty"`
	ImageMimeType   string    `json:"imageMimeType,omitempty"`
	ImageModifiedAt time.Time `json:"imageModifiedAt,omitzero"`
	ImageSizeBytes  int64     `json:"imageSizeBytes,omitempty"`
	SourcePayload   []byte    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Enrollment is the local record of course access, unique per (user, course).
// Rows are created once and only ever transition status.
type Enrollment struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	CourseID        string           `json:"courseId"`
	Status          EnrollmentStatus `json:"status"`
	LMSEnrollmentID int64            `json:"lmsEnrollmentId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Category mirrors an LMS course category, keyed by a slug derived from its
// name. Pure cache, fully replaceable on each sync pass.
type Category struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	LMSCategoryID int64     `json:"lmsCategoryId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Review is platform-side course feedback, consumed here only for the
// analytics projection.
type Review struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CourseStats is the derived analytics projection, fully replaced on each
// recompute pass.
type CourseStats struct {
	CourseID        string    `json:"courseId"`
	EnrollmentCount int64     `json:"enrollmentCount"`
	ReviewCount     int64     `json:"reviewCount"`
	AverageRating   float64   `json:"averageRating"`
	ComputedAt      time.Time `json:"computedAt"`
}
