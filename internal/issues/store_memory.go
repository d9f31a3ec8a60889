package issues

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu     sync.RWMutex
	issues []Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, issue Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.issues {
		if existing.ID == issue.ID {
			return fmt.Errorf("issue %s already exists", issue.ID)
		}
	}
	s.issues = append(s.issues, issue)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Issue, error) {
	s.mu.RLock()
	out := slices.Clone(s.issues)
	s.mu.RUnlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Issue) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, issue := range s.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return Issue{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, status Status) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.issues {
		if s.issues[i].ID == id {
			s.issues[i].Status = status
			return s.issues[i], nil
		}
	}
	return Issue{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
