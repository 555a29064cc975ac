package store

import (
	"testing"

	"coursebridge/pkg/domain"
)

func TestUpsertCourseKeyedByLMSID(t *testing.T) {
	m := NewMemoryStore()
	first, err := m.UpsertCourse(domain.Course{LMSCourseID: 7, Title: "Go 101", Slug: "go-101", PriceCents: 4900})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := m.UpsertCourse(domain.Course{LMSCourseID: 7, Title: "Go 101 (2026)", Slug: "go-101-2026"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %q vs %q", second.ID, first.ID)
	}
	if second.Title != "Go 101 (2026)" {
		t.Fatalf("title not updated: %q", second.Title)
	}
	if second.PriceCents != 4900 {
		t.Fatalf("platform-owned price overwritten: %v", second.PriceCents)
	}
	all, _ := m.ListCourses()
	if len(all) != 1 {
		t.Fatalf("courses = %d, want 1", len(all))
	}
}

func TestUpsertCourseKeepsImageCache(t *testing.T) {
	m := NewMemoryStore()
	c, _ := m.UpsertCourse(domain.Course{LMSCourseID: 7, Title: "Go 101", Slug: "go-101"})
	if err := m.SetCourseImage(c.ID, "courses/course-7-1.png", "image/png", c.UpdatedAt, 120000); err != nil {
		t.Fatalf("SetCourseImage: %v", err)
	}
	updated, _ := m.UpsertCourse(domain.Course{LMSCourseID: 7, Title: "Go 101", Slug: "go-101"})
	if updated.LocalImagePath != "courses/course-7-1.png" || updated.ImageSizeBytes != 120000 {
		t.Fatalf("image cache lost on upsert: %+v", updated)
	}
}

func TestUpsertEnrollmentIdempotent(t *testing.T) {
	m := NewMemoryStore()
	e := domain.Enrollment{UserID: "u1", CourseID: "c1", Status: domain.EnrollmentActive}
	for i := 0; i < 3; i++ {
		if err := m.UpsertEnrollment(e); err != nil {
			t.Fatalf("upsert %d: %v", i+1, err)
		}
	}
	count, _ := m.CourseEnrollmentCount("c1")
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	updated := e
	updated.Status = domain.EnrollmentSuspended
	if err := m.UpsertEnrollment(updated); err != nil {
		t.Fatalf("status update: %v", err)
	}
	stored, ok, _ := m.GetEnrollment("u1", "c1")
	if !ok || stored.Status != domain.EnrollmentSuspended {
		t.Fatalf("stored = %+v ok=%v", stored, ok)
	}
}

func TestUpsertCategoryKeyedBySlug(t *testing.T) {
	m := NewMemoryStore()
	first, _ := m.UpsertCategory(domain.Category{Slug: "programming", Name: "Programming", LMSCategoryID: 30})
	second, _ := m.UpsertCategory(domain.Category{Slug: "programming", Name: "Programming & Dev", LMSCategoryID: 31})
	if second.ID != first.ID {
		t.Fatal("slug conflict created a second row")
	}
	if second.Name != "Programming & Dev" || second.LMSCategoryID != 31 {
		t.Fatalf("category not updated: %+v", second)
	}
}

func TestSaveLMSBinding(t *testing.T) {
	m := NewMemoryStore()
	m.SeedUser(domain.PlatformUser{ID: "u1", Email: "ana@example.com"})
	if err := m.SaveLMSBinding("u1", 42, "ana.diaz", "pw"); err != nil {
		t.Fatalf("SaveLMSBinding: %v", err)
	}
	u, ok, _ := m.GetPlatformUser("u1")
	if !ok || u.LMSUserID != 42 || u.LMSUsername != "ana.diaz" || u.LMSPassword != "pw" {
		t.Fatalf("binding not stored: %+v", u)
	}
}

func TestCourseReviewStats(t *testing.T) {
	m := NewMemoryStore()
	if count, avg, _ := m.CourseReviewStats("c1"); count != 0 || avg != 0 {
		t.Fatalf("empty stats = %d, %v", count, avg)
	}
	m.SeedReview(domain.Review{CourseID: "c1", Rating: 3})
	m.SeedReview(domain.Review{CourseID: "c1", Rating: 5})
	m.SeedReview(domain.Review{CourseID: "other", Rating: 1})
	count, avg, err := m.CourseReviewStats("c1")
	if err != nil || count != 2 || avg != 4 {
		t.Fatalf("stats = %d, %v (err %v)", count, avg, err)
	}
}
