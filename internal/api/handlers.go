package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/preppysphere/internal/dashboard"
	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/issues"
)

func (s *Server) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	var req intent.StudyPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	plan, err := s.d.Gateway.StudyPlan(r.Context(), req)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Issues.

func (s *Server) handleSubmitIssue(w http.ResponseWriter, r *http.Request) {
	var req intent.IssueCategorizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	issue, err := s.d.Issues.Submit(r.Context(), req.Title, req.Description)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	var (
		list []issues.Issue
		err  error
	)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", intent.ErrInvalidRequest), nil)
			return
		}
		list, err = s.d.Issues.Recent(r.Context(), n)
	} else {
		list, err = s.d.Issues.List(r.Context())
	}
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": list})
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: bad issue id", intent.ErrInvalidRequest), nil)
		return
	}
	var body struct {
		Status issues.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err, nil)
		return
	}
	issue, err := s.d.Issues.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleExportIssues(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Issues.List(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	var buf bytes.Buffer
	if err := issues.ExportXLSX(&buf, list); err != nil {
		writeError(w, err, nil)
		return
	}
	name := fmt.Sprintf("campus-issues-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Doubts.

func (s *Server) handleAskDoubt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConversationID string `json:"conversation_id"`
		Question       string `json:"question"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err, nil)
		return
	}

	if strings.TrimSpace(body.ConversationID) == "" {
		conv, err := s.d.Doubts.Start(r.Context())
		if err != nil {
			writeError(w, err, nil)
			return
		}
		body.ConversationID = conv.ID
	}

	msg, err := s.d.Doubts.Ask(r.Context(), body.ConversationID, body.Question)
	resp := map[string]any{"conversation_id": body.ConversationID, "message": msg}
	if err != nil {
		if msg.Role == "" {
			writeError(w, err, nil)
			return
		}
		writeError(w, err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDoubtHistory(w http.ResponseWriter, r *http.Request) {
	conv, err := s.d.Doubts.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Dashboard.

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.d.Profiles.Visit(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var in dashboard.Profile
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, nil)
		return
	}
	prof, err := s.d.Profiles.Update(r.Context(), in)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// taskList picks the list named by ?list=, personal by default.
func (s *Server) taskList(r *http.Request) (*dashboard.TodoList, error) {
	switch r.URL.Query().Get("list") {
	case "", "personal":
		return s.d.Tasks, nil
	case "campus":
		return s.d.CampusTasks, nil
	default:
		return nil, fmt.Errorf("%w: list must be 'personal' or 'campus'", intent.ErrInvalidRequest)
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.taskList(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	tasks, err := list.All(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "progress": dashboard.Progress(tasks)})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	list, err := s.taskList(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	var body struct {
		Text     string `json:"text"`
		Deadline string `json:"deadline"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err, nil)
		return
	}
	task, err := list.Add(r.Context(), body.Text, body.Deadline)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	list, err := s.taskList(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	task, err := list.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	list, err := s.taskList(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if err := list.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

