// Package ai provides the transport to the remote text-generation service
// and the failure taxonomy shared by everything that calls it.
package ai

import (
	"context"
	"strings"
)

// DefaultModel is the Gemini model used when a request does not name one.
const DefaultModel = "gemini-3-flash-preview"

// MinCredentialLength is the shortest API key treated as configured.
const MinCredentialLength = 10

// CompletionRequest is the input to a single generateContent call.
type CompletionRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"` // nil means provider default
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Schema      *Schema  `json:"schema,omitempty"` // non-nil requests JSON output
}

// CompletionResponse is the raw output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is the minimal contract the gateway needs from a text-generation service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}

// CredentialUsable reports whether key looks like a configured API key.
// Build tooling that inlines an unset variable produces the literal "undefined".
func CredentialUsable(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" || key == "undefined" {
		return false
	}
	return len(key) >= MinCredentialLength
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
