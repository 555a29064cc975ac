// Package contentsync mirrors LMS categories, courses, and course cover
// images into the local store, and recomputes the derived course analytics.
// Failures are isolated per phase, per course, and per image: one bad
// record never aborts a pass.
package contentsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"coursebridge/internal/lms"
	"coursebridge/internal/storage"
	"coursebridge/internal/store"
	"coursebridge/internal/util"
	"coursebridge/pkg/domain"
)

// Service runs sync passes against the LMS.
type Service struct {
	api         lms.API
	store       store.Store
	images      storage.ImageStore
	concurrency int
	now         func() time.Time
}

// New constructs the sync service. concurrency bounds how many courses are
// processed in parallel; values below 1 mean sequential.
func New(api lms.API, st store.Store, images storage.ImageStore, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		api:         api,
		store:       st,
		images:      images,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// RunFullPass syncs categories, then courses with images, then recomputes
// analytics. A failed phase is logged and the remaining phases still run.
func (s *Service) RunFullPass(ctx context.Context) error {
	var errs []error
	if err := s.SyncCategories(ctx); err != nil {
		slog.Error("category sync failed", "err", err)
		errs = append(errs, fmt.Errorf("categories: %w", err))
	}
	if err := s.SyncCourses(ctx); err != nil {
		slog.Error("course sync failed", "err", err)
		errs = append(errs, fmt.Errorf("courses: %w", err))
	}
	if err := s.RecomputeStats(ctx); err != nil {
		slog.Error("stats recompute failed", "err", err)
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	return errors.Join(errs...)
}

// SyncCategories upserts the local category mirror keyed by slug.
func (s *Service) SyncCategories(ctx context.Context) error {
	remote, err := s.api.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, rc := range remote {
		category := CategoryFromRemote(rc)
		if category.Slug == "" {
			continue
		}
		if _, err := s.store.UpsertCategory(category); err != nil {
			slog.Error("category upsert failed", "slug", category.Slug, "err", err)
		}
	}
	return nil
}

// SyncCourses mirrors all LMS courses, preferring the richer listing that
// includes overview files and falling back to the plain one when it fails.
func (s *Service) SyncCourses(ctx context.Context) error {
	remote, err := s.api.ListCoursesWithImages(ctx)
	if err != nil {
		slog.Warn("course listing with images unavailable, falling back", "err", err)
		remote, err = s.api.ListCourses(ctx)
		if err != nil {
			return fmt.Errorf("list courses: %w", err)
		}
	}

	categories, err := s.store.ListCategories()
	if err != nil {
		return fmt.Errorf("list local categories: %w", err)
	}
	byLMSID := make(map[int64]string, len(categories))
	bySlug := make(map[string]string, len(categories))
	for _, c := range categories {
		byLMSID[c.LMSCategoryID] = c.ID
		bySlug[c.Slug] = c.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, rc := range remote {
		// The LMS reports its front page as course 1; it is not a real course.
		if rc.ID <= 1 {
			continue
		}
		rc := rc
		g.Go(func() error {
			if err := s.syncCourse(gctx, rc, byLMSID, bySlug); err != nil {
				slog.Error("course sync failed", "lms_course_id", rc.ID, "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) syncCourse(ctx context.Context, rc lms.RemoteCourse, byLMSID map[int64]string, bySlug map[string]string) error {
	course := CourseFromRemote(rc)
	// Category association is best-effort: by the LMS category id first,
	// then by slugified name. An unmatched course stays uncategorized.
	if id, ok := byLMSID[rc.CategoryID]; ok {
		course.CategoryID = id
	} else if id, ok := bySlug[util.Slugify(rc.CategoryName)]; ok {
		course.CategoryID = id
	}

	stored, err := s.store.UpsertCourse(course)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	s.syncCourseImage(ctx, stored, rc)
	return nil
}

// syncCourseImage downloads the primary cover when stale. A failed download
// or save is logged and leaves any previously recorded image untouched; the
// mirror never fabricates placeholder data.
func (s *Service) syncCourseImage(ctx context.Context, course domain.Course, rc lms.RemoteCourse) {
	file, ok := pickPrimaryImage(rc.OverviewFiles)
	if !ok {
		return
	}
	if !imageStale(course, file) {
		return
	}
	data, contentType, err := s.api.DownloadFile(ctx, file.FileURL)
	if err != nil {
		slog.Error("cover download failed", "lms_course_id", rc.ID, "file", file.Filename, "err", err)
		return
	}
	if contentType == "" {
		contentType = file.MimeType
	}
	key := imageKey(rc.ID, file, s.now())
	if err := s.images.Save(ctx, key, data, contentType); err != nil {
		slog.Error("cover save failed", "lms_course_id", rc.ID, "key", key, "err", err)
		return
	}
	size := file.FileSize
	if size == 0 {
		size = int64(len(data))
	}
	if err := s.store.SetCourseImage(course.ID, key, contentType, file.ModifiedAt(), size); err != nil {
		slog.Error("cover record failed", "course_id", course.ID, "err", err)
	}
}

// RecomputeStats rebuilds the analytics projection for every course. The
// projection is fully replaceable, so running it unconditionally is safe.
func (s *Service) RecomputeStats(ctx context.Context) error {
	courses, err := s.store.ListCourses()
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	for _, course := range courses {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		enrollments, err := s.store.CourseEnrollmentCount(course.ID)
		if err != nil {
			slog.Error("enrollment count failed", "course_id", course.ID, "err", err)
			continue
		}
		reviews, avg, err := s.store.CourseReviewStats(course.ID)
		if err != nil {
			slog.Error("review stats failed", "course_id", course.ID, "err", err)
			continue
		}
		stats := domain.CourseStats{
			CourseID:        course.ID,
			EnrollmentCount: enrollments,
			ReviewCount:     reviews,
			AverageRating:   avg,
			ComputedAt:      s.now().UTC(),
		}
		if err := s.store.SaveCourseStats(stats); err != nil {
			slog.Error("stats save failed", "course_id", course.ID, "err", err)
		}
	}
	return nil
}
