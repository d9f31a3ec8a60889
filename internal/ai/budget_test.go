package ai

import (
	"testing"
	"time"
)

func TestInMemoryBudget_NoBudgetSet(t *testing.T) {
	b := NewInMemoryBudget()

	ok, err := b.Check("student-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no budget means unlimited)")
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student-1", 1000)

	if err := b.Record("student-1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check("student-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (500 < 1000)")
	}
}

func TestInMemoryBudget_ExactBudget(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student-1", 100)

	if err := b.Record("student-1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, _ := b.Check("student-1")
	if ok {
		t.Error("Check() = true, want false (100 >= 100, budget exhausted)")
	}
}

func TestInMemoryBudget_MultipleRecords(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student-1", 1000)

	for _, tokens := range []int{100, 200, 300} {
		if err := b.Record("student-1", tokens); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	used, budget, err := b.Usage("student-1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 600 {
		t.Errorf("used = %d, want 600", used)
	}
	if budget != 1000 {
		t.Errorf("budget = %d, want 1000", budget)
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget()

	if err := b.Record("student-1", -10); err == nil {
		t.Fatal("Record() should return error for negative tokens")
	}
}

func TestInMemoryBudget_ResetsNextDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	b := NewInMemoryBudget().WithClock(func() time.Time { return now })
	b.SetBudget("student-1", 100)

	b.Record("student-1", 150)
	if ok, _ := b.Check("student-1"); ok {
		t.Fatal("Check() = true, want false before midnight")
	}

	now = now.Add(3 * time.Hour)
	if ok, _ := b.Check("student-1"); !ok {
		t.Error("Check() = false, want true after the day rolls over")
	}
	if used, _, _ := b.Usage("student-1"); used != 0 {
		t.Errorf("used = %d, want 0 after rollover", used)
	}
}

func TestInMemoryBudget_RemoveBudget(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("student-1", 10)
	b.Record("student-1", 50)
	b.SetBudget("student-1", 0)

	if ok, _ := b.Check("student-1"); !ok {
		t.Error("Check() = false, want true once the budget is removed")
	}
}
