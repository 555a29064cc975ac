package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"coursebridge/internal/app"
	"coursebridge/internal/enroll"
	"coursebridge/internal/lms"
	"coursebridge/internal/lms/lmstest"
	"coursebridge/internal/reconcile"
	"coursebridge/internal/scheduler"
	"coursebridge/internal/ssotoken"
	"coursebridge/internal/store"
	"coursebridge/pkg/domain"
)

func newTestServer(t *testing.T, fake *lmstest.Fake, st *store.MemoryStore, sched *scheduler.Scheduler) *Server {
	t.Helper()
	minter, err := ssotoken.New(ssotoken.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	a, err := app.New(app.Config{
		Store:       st,
		Reconciler:  reconcile.New(fake, st, "test-salt"),
		Coordinator: enroll.New(fake, st),
		Minter:      minter,
	})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	return New(Config{App: a, Scheduler: sched})
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &lmstest.Fake{}, store.NewMemoryStore(), scheduler.New())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSSOEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedUser(domain.PlatformUser{ID: "u1", Email: "ana@example.com", FirstName: "Ana", LastName: "Diaz"})
	fake := &lmstest.Fake{
		CoursesFn: func() ([]lms.RemoteCourse, error) {
			return []lms.RemoteCourse{{ID: 7, FullName: "Go 101", Visible: 1, Raw: json.RawMessage(`{"id":7}`)}}, nil
		},
	}
	srv := newTestServer(t, fake, st, scheduler.New())

	body := strings.NewReader(`{"userId":"u1","courseId":7}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sso", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res app.SSOResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.LoginURL == "" {
		t.Fatal("login url missing from response")
	}
}

func TestSSOEndpointErrors(t *testing.T) {
	srv := newTestServer(t, &lmstest.Fake{}, store.NewMemoryStore(), scheduler.New())

	cases := []struct {
		name   string
		method string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "{", http.StatusBadRequest, "invalid-parameter"},
		{"missing params", http.MethodPost, `{}`, http.StatusBadRequest, "invalid-parameter"},
		{"unknown user", http.MethodPost, `{"userId":"ghost","courseId":7}`, http.StatusNotFound, "account-not-found"},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, "method-not-allowed"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(c.method, "/sso", strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Errorf("%s: status = %d, want %d", c.name, rec.Code, c.status)
		}
		var payload map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Errorf("%s: decode: %v", c.name, err)
			continue
		}
		if payload["code"] != c.code {
			t.Errorf("%s: code = %q, want %q", c.name, payload["code"], c.code)
		}
	}
}

func TestManualSyncTrigger(t *testing.T) {
	sched := scheduler.New()
	defer sched.Stop()
	var runs atomic.Int32
	sched.Every(context.Background(), scheduler.TaskFullSync, time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	srv := newTestServer(t, &lmstest.Fake{}, store.NewMemoryStore(), sched)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sync", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("sync task never ran after trigger")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTasksEndpoint(t *testing.T) {
	sched := scheduler.New()
	defer sched.Stop()
	noop := func(context.Context) error { return nil }
	sched.Every(context.Background(), scheduler.TaskStats, time.Hour, noop)
	sched.Every(context.Background(), scheduler.TaskFullSync, time.Hour, noop)
	srv := newTestServer(t, &lmstest.Fake{}, store.NewMemoryStore(), sched)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/tasks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Tasks []string `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Tasks) != 2 || payload.Tasks[0] != scheduler.TaskFullSync {
		t.Fatalf("tasks = %v", payload.Tasks)
	}
}
