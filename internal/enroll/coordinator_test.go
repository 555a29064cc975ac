package enroll

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"coursebridge/internal/lms"
	"coursebridge/internal/lms/lmstest"
	"coursebridge/internal/store"
	"coursebridge/pkg/domain"
)

func testIdentity() domain.ResolvedIdentity {
	return domain.ResolvedIdentity{
		LMSUserID: 42,
		Username:  "ana.diaz",
		FirstName: "Ana",
		LastName:  "Diaz",
	}
}

func remoteGo101() lms.RemoteCourse {
	return lms.RemoteCourse{
		ID:       7,
		FullName: "Go 101",
		Visible:  1,
		Raw:      json.RawMessage(`{"id":7,"fullname":"Go 101"}`),
	}
}

func TestEnsureConvergesOnOneRow(t *testing.T) {
	st := store.NewMemoryStore()
	fake := &lmstest.Fake{
		CoursesFn: func() ([]lms.RemoteCourse, error) {
			return []lms.RemoteCourse{remoteGo101()}, nil
		},
	}
	c := New(fake, st)

	var first domain.Enrollment
	for i := 0; i < 3; i++ {
		e, err := c.Ensure(context.Background(), "u1", testIdentity(), 7)
		if err != nil {
			t.Fatalf("Ensure #%d: %v", i+1, err)
		}
		if i == 0 {
			first = e
		}
		if e.ID != first.ID {
			t.Fatalf("call %d produced a new row %q, want %q", i+1, e.ID, first.ID)
		}
		if e.Status != domain.EnrollmentActive {
			t.Fatalf("status = %q, want active", e.Status)
		}
	}
	if len(fake.EnrollCalls) != 1 {
		t.Fatalf("lms enroll mutations = %d, want 1", len(fake.EnrollCalls))
	}
	count, err := st.CourseEnrollmentCount(first.CourseID)
	if err != nil || count != 1 {
		t.Fatalf("enrollment count = %d (err %v), want 1", count, err)
	}
}

func TestEnsureCreatesMissingCourseMirror(t *testing.T) {
	st := store.NewMemoryStore()
	fake := &lmstest.Fake{
		CoursesFn: func() ([]lms.RemoteCourse, error) {
			return []lms.RemoteCourse{remoteGo101()}, nil
		},
	}
	c := New(fake, st)

	e, err := c.Ensure(context.Background(), "u1", testIdentity(), 7)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	course, ok, err := st.GetCourseByLMSID(7)
	if err != nil || !ok {
		t.Fatalf("course mirror missing after Ensure (err %v)", err)
	}
	if course.ID != e.CourseID {
		t.Fatalf("enrollment points at %q, course row is %q", e.CourseID, course.ID)
	}
	if course.Title != "Go 101" {
		t.Fatalf("title = %q", course.Title)
	}
	if len(course.SourcePayload) == 0 {
		t.Fatal("source payload not captured")
	}
}

func TestEnsureReusesExistingMirror(t *testing.T) {
	st := store.NewMemoryStore()
	seeded, err := st.UpsertCourse(domain.Course{LMSCourseID: 7, Title: "Go 101", Slug: "go-101"})
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	fake := &lmstest.Fake{} // empty LMS catalog: any fetch would miss
	c := New(fake, st)

	e, err := c.Ensure(context.Background(), "u1", testIdentity(), 7)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if e.CourseID != seeded.ID {
		t.Fatalf("did not reuse the stored course row")
	}
}

func TestEnsureUnknownCourse(t *testing.T) {
	c := New(&lmstest.Fake{}, store.NewMemoryStore())
	_, err := c.Ensure(context.Background(), "u1", testIdentity(), 99)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestEnsurePropagatesEnrollFailure(t *testing.T) {
	fake := &lmstest.Fake{
		EnrollFn: func(int64, int64, int64) (lms.EnrollResult, error) {
			return lms.EnrollResult{}, &lms.RemoteFault{Op: "enrol_manual_enrol_users", ErrorCode: "wsaccessdenied"}
		},
	}
	c := New(fake, store.NewMemoryStore())
	_, err := c.Ensure(context.Background(), "u1", testIdentity(), 7)
	var fault *lms.RemoteFault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want RemoteFault", err)
	}
}
