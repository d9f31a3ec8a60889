// Package api exposes the study planner, issue tracker, wellness center,
// doubt assistant, and dashboard over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/p-n-ai/preppysphere/internal/dashboard"
	"github.com/p-n-ai/preppysphere/internal/doubt"
	"github.com/p-n-ai/preppysphere/internal/gateway"
	"github.com/p-n-ai/preppysphere/internal/issues"
	"github.com/p-n-ai/preppysphere/internal/wellness"
)

// Check reports whether a dependency is ready.
type Check func(ctx context.Context) error

// Deps are the services behind the routes.
type Deps struct {
	Gateway       *gateway.Gateway
	Issues        *issues.Service
	Wellness      *wellness.Session
	Questionnaire *wellness.Questionnaire
	Doubts        *doubt.Assistant
	Profiles      *dashboard.Profiles
	Tasks         *dashboard.TodoList
	CampusTasks   *dashboard.TodoList

	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]Check
	// AllowedOrigins are websocket origin patterns.
	AllowedOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	d Deps
}

func New(d Deps) *Server {
	return &Server{d: d}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/study-plans", s.handleStudyPlan)

	mux.HandleFunc("POST /api/issues", s.handleSubmitIssue)
	mux.HandleFunc("GET /api/issues", s.handleListIssues)
	mux.HandleFunc("GET /api/issues/export", s.handleExportIssues)
	mux.HandleFunc("PATCH /api/issues/{id}", s.handleUpdateIssue)

	mux.HandleFunc("GET /api/wellness/tips", s.handleWellnessTips)
	mux.HandleFunc("POST /api/wellness/retry", s.handleWellnessRetry)
	mux.HandleFunc("PATCH /api/wellness/tips/{index}", s.handleToggleTip)
	mux.HandleFunc("GET /api/wellness/stress-check", s.handleQuestions)
	mux.HandleFunc("POST /api/wellness/stress-check", s.handleStressCheck)

	mux.HandleFunc("POST /api/doubts", s.handleAskDoubt)
	mux.HandleFunc("GET /api/doubts/{id}", s.handleDoubtHistory)
	mux.Handle("GET /ws/doubts", doubt.NewWebSocketHandler(s.d.Doubts, s.d.AllowedOrigins...))

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handlePutProfile)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleAddTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handleToggleTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleRemoveTask)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range s.d.Checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
