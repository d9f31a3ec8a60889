package ai

import (
	"fmt"
	"sync"
	"time"
)

// BudgetChecker checks and records token usage against daily budgets.
type BudgetChecker interface {
	// Check returns true if the scope has budget remaining today.
	Check(scope string) (bool, error)
	// Record records token usage for a scope.
	Record(scope string, tokens int) error
	// Usage returns today's usage and the configured budget for a scope.
	Usage(scope string) (used int64, budget int64, err error)
}

// InMemoryBudget tracks token usage per scope and calendar day (UTC).
type InMemoryBudget struct {
	mu      sync.Mutex
	now     func() time.Time
	budgets map[string]int64 // scope -> daily limit
	usage   map[string]int64 // scope -> tokens used on day
	day     string
}

// NewInMemoryBudget creates a new in-memory budget tracker.
func NewInMemoryBudget() *InMemoryBudget {
	return &InMemoryBudget{
		now:     time.Now,
		budgets: make(map[string]int64),
		usage:   make(map[string]int64),
	}
}

// WithClock replaces the time source (for tests).
func (b *InMemoryBudget) WithClock(now func() time.Time) *InMemoryBudget {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

// SetBudget sets the daily token budget for a scope. Zero or less removes it.
func (b *InMemoryBudget) SetBudget(scope string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tokens <= 0 {
		delete(b.budgets, scope)
		return
	}
	b.budgets[scope] = tokens
}

func (b *InMemoryBudget) Check(scope string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	budget, hasBudget := b.budgets[scope]
	if !hasBudget {
		// No budget set means unlimited.
		return true, nil
	}
	return b.usage[scope] < budget, nil
}

func (b *InMemoryBudget) Record(scope string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	b.usage[scope] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(scope string) (int64, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	return b.usage[scope], b.budgets[scope], nil
}

// rollover clears usage when the UTC day changes. Caller holds mu.
func (b *InMemoryBudget) rollover() {
	today := b.now().UTC().Format(time.DateOnly)
	if today != b.day {
		b.day = today
		clear(b.usage)
	}
}
