// Package lmstest provides a configurable in-memory lms.API for tests.
package lmstest

import (
	"context"
	"sync"

	"coursebridge/internal/lms"
	"coursebridge/pkg/domain"
)

// Fake implements lms.API with overridable behavior per operation and call
// recording. Zero-value behavior is "empty LMS": every lookup misses.
type Fake struct {
	mu sync.Mutex

	LookupByEmailFn func(email string) (domain.Account, bool, error)
	LookupByIDFn    func(id int64) (domain.Account, bool, error)
	CreateUserFn    func(in lms.NewUser) (domain.Account, error)
	CoursesFn       func() ([]lms.RemoteCourse, error)
	CoursesPlainFn  func() ([]lms.RemoteCourse, error)
	CategoriesFn    func() ([]lms.RemoteCategory, error)
	EnrolledFn      func(courseID, userID int64) (bool, error)
	EnrollFn        func(courseID, userID, roleID int64) (lms.EnrollResult, error)
	DownloadFn      func(fileURL string) ([]byte, string, error)

	CreateCalls   []lms.NewUser
	EnrollCalls   []int64 // course ids, in order
	DownloadCalls []string
}

var _ lms.API = (*Fake)(nil)

func (f *Fake) LookupUserByEmail(_ context.Context, email string) (domain.Account, bool, error) {
	if f.LookupByEmailFn != nil {
		return f.LookupByEmailFn(email)
	}
	return domain.Account{}, false, nil
}

func (f *Fake) LookupUserByID(_ context.Context, id int64) (domain.Account, bool, error) {
	if f.LookupByIDFn != nil {
		return f.LookupByIDFn(id)
	}
	return domain.Account{}, false, nil
}

func (f *Fake) CreateUser(_ context.Context, in lms.NewUser) (domain.Account, error) {
	f.mu.Lock()
	f.CreateCalls = append(f.CreateCalls, in)
	f.mu.Unlock()
	if f.CreateUserFn != nil {
		return f.CreateUserFn(in)
	}
	return domain.Account{
		ID:        int64(1000 + len(f.CreateCalls)),
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}, nil
}

func (f *Fake) ListCourses(context.Context) ([]lms.RemoteCourse, error) {
	if f.CoursesPlainFn != nil {
		return f.CoursesPlainFn()
	}
	return nil, nil
}

func (f *Fake) ListCoursesWithImages(context.Context) ([]lms.RemoteCourse, error) {
	if f.CoursesFn != nil {
		return f.CoursesFn()
	}
	return nil, nil
}

func (f *Fake) GetCourseByID(_ context.Context, id int64) (lms.RemoteCourse, bool, error) {
	courses, err := f.ListCoursesWithImages(context.Background())
	if err != nil {
		return lms.RemoteCourse{}, false, err
	}
	for _, c := range courses {
		if c.ID == id {
			return c, true, nil
		}
	}
	return lms.RemoteCourse{}, false, nil
}

func (f *Fake) ListCategories(context.Context) ([]lms.RemoteCategory, error) {
	if f.CategoriesFn != nil {
		return f.CategoriesFn()
	}
	return nil, nil
}

func (f *Fake) IsUserEnrolled(_ context.Context, courseID, userID int64) (bool, error) {
	if f.EnrolledFn != nil {
		return f.EnrolledFn(courseID, userID)
	}
	return false, nil
}

func (f *Fake) Enroll(_ context.Context, courseID, userID, roleID int64) (lms.EnrollResult, error) {
	enrolled, err := f.IsUserEnrolled(context.Background(), courseID, userID)
	if err != nil {
		return lms.EnrollResult{}, err
	}
	if enrolled {
		return lms.EnrollResult{AlreadyEnrolled: true}, nil
	}
	f.mu.Lock()
	f.EnrollCalls = append(f.EnrollCalls, courseID)
	f.mu.Unlock()
	if f.EnrollFn != nil {
		return f.EnrollFn(courseID, userID, roleID)
	}
	return lms.EnrollResult{Enrolled: true}, nil
}

func (f *Fake) Unenroll(context.Context, int64, int64) error {
	return nil
}

func (f *Fake) DownloadFile(_ context.Context, fileURL string) ([]byte, string, error) {
	f.mu.Lock()
	f.DownloadCalls = append(f.DownloadCalls, fileURL)
	f.mu.Unlock()
	if f.DownloadFn != nil {
		return f.DownloadFn(fileURL)
	}
	return []byte("image-bytes"), "image/png", nil
}
