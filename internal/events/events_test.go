package events_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/preppysphere/internal/events"
)

func TestMemoryLogger_Log(t *testing.T) {
	logger := events.NewMemoryLogger()

	err := logger.Log(context.Background(), events.Event{
		Type: events.TypeAIRequest,
		Data: map[string]any{"intent": "study_plan", "outcome": "live"},
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	got := logger.Events()
	if len(got) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(got))
	}
	if got[0].Type != events.TypeAIRequest {
		t.Errorf("Type = %q, want %q", got[0].Type, events.TypeAIRequest)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryLogger_RequiresType(t *testing.T) {
	logger := events.NewMemoryLogger()
	if err := logger.Log(context.Background(), events.Event{}); err == nil {
		t.Fatal("expected error for empty type")
	}
	if len(logger.Events()) != 0 {
		t.Error("rejected event should not be stored")
	}
}

func TestMemoryLogger_OfType(t *testing.T) {
	logger := events.NewMemoryLogger()
	ctx := context.Background()
	logger.Log(ctx, events.Event{Type: events.TypeAIRequest})
	logger.Log(ctx, events.Event{Type: events.TypeIssueReported})
	logger.Log(ctx, events.Event{Type: events.TypeAIRequest})

	if n := len(logger.OfType(events.TypeAIRequest)); n != 2 {
		t.Errorf("OfType(ai_request) = %d, want 2", n)
	}
}

func TestPostgresLogger_NilPool(t *testing.T) {
	logger := events.NewPostgresLogger(nil)
	err := logger.Log(context.Background(), events.Event{Type: events.TypeAIRequest})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestNopLogger(t *testing.T) {
	var l events.Logger = events.NopLogger{}
	if err := l.Log(context.Background(), events.Event{}); err != nil {
		t.Errorf("NopLogger.Log() = %v", err)
	}
}
