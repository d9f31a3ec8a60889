// Package issues tracks campus issues reported by students. New reports
// are categorized and routed by the AI gateway before they are stored.
package issues

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/preppysphere/internal/intent"
)

// Status is the lifecycle state of an issue.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// ParseStatus accepts the three known statuses.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusResolved:
		return Status(s), true
	}
	return "", false
}

// ErrNotFound is returned for unknown issue IDs.
var ErrNotFound = errors.New("issue not found")

// Issue is a reported campus problem.
type Issue struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    intent.IssueCategory `json:"category"`
	Routing     string               `json:"routing"`
	Status      Status               `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Store persists issues.
type Store interface {
	Create(ctx context.Context, issue Issue) error
	// List returns every issue, newest first.
	List(ctx context.Context) ([]Issue, error)
	Get(ctx context.Context, id uuid.UUID) (Issue, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (Issue, error)
}
