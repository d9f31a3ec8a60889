package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/wellness"
)

// handleWellnessTips drives the wellness session:
// ?stress=N moves the slider, ?query= searches, ?refresh=true bypasses the
// daily cache. On failure the snapshot with the local fallback tips is
// returned alongside the error.
func (s *Server) handleWellnessTips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("stress"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: stress must be an integer", intent.ErrInvalidRequest), nil)
			return
		}
		if err := s.d.Wellness.SetStressLevel(level); err != nil {
			writeError(w, err, nil)
			return
		}
	}

	var err error
	switch query := q.Get("query"); {
	case query != "":
		err = s.d.Wellness.Search(r.Context(), query)
	case q.Get("refresh") == "true":
		err = s.d.Wellness.Refresh(r.Context())
	default:
		err = s.d.Wellness.Load(r.Context())
	}
	s.writeSnapshot(w, err)
}

func (s *Server) handleWellnessRetry(w http.ResponseWriter, r *http.Request) {
	err := s.d.Wellness.Retry(r.Context())
	if errors.Is(err, wellness.ErrNotFailed) {
		writeJSON(w, http.StatusConflict, errorBody{Error: "not_failed", Message: err.Error()})
		return
	}
	s.writeSnapshot(w, err)
}

func (s *Server) handleToggleTip(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: tip index must be an integer", intent.ErrInvalidRequest), nil)
		return
	}
	completed, err := s.d.Wellness.ToggleTip(r.Context(), index)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index, "completed": completed})
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.d.Questionnaire)
}

func (s *Server) handleStressCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Checked []int `json:"checked"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err, nil)
		return
	}
	err := s.d.Wellness.ApplyStressCheck(r.Context(), s.d.Questionnaire, body.Checked)
	if errors.Is(err, intent.ErrInvalidRequest) {
		writeError(w, err, nil)
		return
	}
	s.writeSnapshot(w, err)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, err error) {
	snap := s.d.Wellness.Snapshot()
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
