// Package server exposes the engine over HTTP: the SSO entry point and the
// operator-facing sync surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"coursebridge/internal/app"
	"coursebridge/internal/scheduler"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App       *app.App
	Scheduler *scheduler.Scheduler
}

// Server exposes HTTP endpoints for the sync engine.
type Server struct {
	app   *app.App
	sched *scheduler.Scheduler
	mux   *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:   cfg.App,
		sched: cfg.Scheduler,
		mux:   http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/sso", s.handleSSO)
	s.mux.HandleFunc("/admin/sync", s.handleTriggerSync)
	s.mux.HandleFunc("/admin/tasks", s.handleTasks)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ssoRequest struct {
	UserID   string `json:"userId"`
	CourseID int64  `json:"courseId"`
}

func (s *Server) handleSSO(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ssoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", string(app.CategoryInvalidParameter))
		return
	}
	result, err := s.app.SSO(r.Context(), req.UserID, req.CourseID)
	if err != nil {
		var ssoErr *app.SSOError
		if errors.As(err, &ssoErr) {
			slog.Error("sso failed", "user_id", req.UserID, "category", string(ssoErr.Category), "err", err)
			writeError(w, statusFor(ssoErr.Category), ssoErr.Message(), string(ssoErr.Category))
			return
		}
		slog.Error("sso failed", "user_id", req.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", string(app.CategoryUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	// Run detached from the request; a full pass can take minutes.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.sched.Trigger(ctx, scheduler.TaskFullSync); err != nil {
			slog.Error("manual sync trigger failed", "err", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.sched.Armed()})
}

func statusFor(category app.Category) int {
	switch category {
	case app.CategoryInvalidParameter:
		return http.StatusBadRequest
	case app.CategoryAccountNotFound, app.CategoryCourseNotFound:
		return http.StatusNotFound
	case app.CategoryTooManyAttempts:
		return http.StatusTooManyRequests
	case app.CategoryEnrollmentFailed, app.CategoryAccountCreationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method-not-allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
