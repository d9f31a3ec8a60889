package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/dashboard"
	"github.com/p-n-ai/preppysphere/internal/doubt"
	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/issues"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every failed request. Fallback carries
// whatever the feature shows instead of a live answer.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Fallback  any    `json:"fallback,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error, fallback any) {
	status, body := errorResponse(err)
	body.Fallback = fallback
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// errorResponse maps an error onto a status code and body.
func errorResponse(err error) (int, errorBody) {
	switch {
	case errors.Is(err, intent.ErrInvalidRequest):
		return http.StatusBadRequest, errorBody{Error: "invalid_request", Message: err.Error()}
	case errors.Is(err, issues.ErrNotFound),
		errors.Is(err, doubt.ErrConversationNotFound),
		errors.Is(err, dashboard.ErrTaskNotFound):
		return http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()}
	}

	var f *ai.Failure
	if errors.As(err, &f) {
		return statusForKind(f.Kind), errorBody{
			Error:     f.Kind.String(),
			Message:   messageForKind(f.Kind),
			Retryable: f.Kind.Retryable(),
		}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"}
}

func statusForKind(k ai.Kind) int {
	switch k {
	case ai.KindMissingCredential, ai.KindOffline:
		return http.StatusServiceUnavailable
	case ai.KindInvalidCredential, ai.KindServerError, ai.KindMalformedResponse:
		return http.StatusBadGateway
	case ai.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func messageForKind(k ai.Kind) string {
	switch k {
	case ai.KindMissingCredential:
		return "The AI service is not configured."
	case ai.KindInvalidCredential:
		return "The AI service rejected the configured API key."
	case ai.KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case ai.KindServerError:
		return "The AI service is having trouble. Please try again."
	case ai.KindOffline:
		return "You appear to be offline. Check your connection and try again."
	case ai.KindMalformedResponse:
		return "The AI service returned an unexpected answer. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", intent.ErrInvalidRequest, err)
	}
	return nil
}
