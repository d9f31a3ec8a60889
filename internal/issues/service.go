package issues

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/preppysphere/internal/events"
	"github.com/p-n-ai/preppysphere/internal/intent"
)

// DefaultRecent is how many issues the notification panel shows.
const DefaultRecent = 3

// Categorizer assigns a category and routing to a new issue.
type Categorizer interface {
	CategorizeIssue(ctx context.Context, req intent.IssueCategorizationRequest) (intent.Categorization, error)
}

// Service reports and tracks campus issues.
type Service struct {
	store       Store
	categorizer Categorizer
	events      events.Logger
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEvents records an issue_reported event per submission.
func WithEvents(l events.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.events = l
		}
	}
}

// WithClock sets the creation timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, categorizer Categorizer, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		categorizer: categorizer,
		events:      events.NopLogger{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit categorizes and stores a new issue. When categorization fails
// nothing is stored and the gateway error is returned unchanged.
func (s *Service) Submit(ctx context.Context, title, description string) (Issue, error) {
	req := intent.IssueCategorizationRequest{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if err := req.Validate(); err != nil {
		return Issue{}, err
	}

	c, err := s.categorizer.CategorizeIssue(ctx, req)
	if err != nil {
		return Issue{}, err
	}

	issue := Issue{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    c.Category,
		Routing:     c.Routing,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, issue); err != nil {
		return Issue{}, fmt.Errorf("store issue: %w", err)
	}

	if err := s.events.Log(ctx, events.Event{
		Type: events.TypeIssueReported,
		Data: map[string]any{
			"issue_id": issue.ID.String(),
			"category": string(issue.Category),
		},
	}); err != nil {
		slog.Warn("log issue event failed", "error", err)
	}

	slog.Info("issue reported", "id", issue.ID, "category", issue.Category, "routing", issue.Routing)
	return issue, nil
}

// List returns every issue, newest first.
func (s *Service) List(ctx context.Context) ([]Issue, error) {
	return s.store.List(ctx)
}

// Recent returns at most n of the newest issues.
func (s *Service) Recent(ctx context.Context, n int) ([]Issue, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Get returns one issue.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Issue, error) {
	return s.store.Get(ctx, id)
}

// UpdateStatus moves an issue to a new status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Issue, error) {
	if _, ok := ParseStatus(string(status)); !ok {
		return Issue{}, fmt.Errorf("%w: unknown status %q", intent.ErrInvalidRequest, status)
	}
	return s.store.SetStatus(ctx, id, status)
}
