package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

func TestTouchStreak(t *testing.T) {
	tests := []struct {
		name        string
		last        string
		streak      int
		today       string
		wantStreak  int
		wantChanged bool
	}{
		{"first visit", "", 0, "2026-10-18", 1, true},
		{"same day", "2026-10-18", 4, "2026-10-18", 4, false},
		{"next day", "2026-10-17", 4, "2026-10-18", 5, true},
		{"across month", "2026-09-30", 2, "2026-10-01", 3, true},
		{"gap resets", "2026-10-15", 9, "2026-10-18", 1, true},
		{"unparseable date", "yesterday", 7, "2026-10-18", 1, true},
		{"clock moved back", "2026-10-19", 3, "2026-10-18", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := TouchStreak(Profile{Streak: tt.streak, LastActiveDate: tt.last}, day(tt.today))
			if got.Streak != tt.wantStreak {
				t.Errorf("Streak = %d, want %d", got.Streak, tt.wantStreak)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got.LastActiveDate != tt.today {
				t.Errorf("LastActiveDate = %q, want %q", got.LastActiveDate, tt.today)
			}
		})
	}
}

func TestProfiles_Visit(t *testing.T) {
	store := cache.NewMemory()
	now := day("2026-10-17")
	p := NewProfiles(store, func() time.Time { return now })
	ctx := context.Background()

	prof, err := p.Visit(ctx)
	if err != nil {
		t.Fatalf("Visit() error = %v", err)
	}
	if prof.Name != "Scholar" || prof.Streak != 1 {
		t.Errorf("first visit = %+v", prof)
	}

	now = day("2026-10-18")
	prof, _ = p.Visit(ctx)
	if prof.Streak != 2 {
		t.Errorf("Streak = %d, want 2", prof.Streak)
	}
	prof, _ = p.Visit(ctx)
	if prof.Streak != 2 {
		t.Errorf("repeat visit Streak = %d, want 2", prof.Streak)
	}

	if _, ok, _ := store.Get(ctx, ProfileKey); !ok {
		t.Error("profile should be persisted")
	}
}

func TestProfiles_UpdateKeepsStreak(t *testing.T) {
	store := cache.NewMemory()
	p := NewProfiles(store, func() time.Time { return day("2026-10-18") })
	ctx := context.Background()
	p.Visit(ctx)

	got, err := p.Update(ctx, Profile{Name: " Aisha ", Major: "Physics", Streak: 99})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Name != "Aisha" || got.Major != "Physics" {
		t.Errorf("profile = %+v", got)
	}
	if got.Streak != 1 || got.LastActiveDate != "2026-10-18" {
		t.Errorf("streak fields = %d %q, want kept", got.Streak, got.LastActiveDate)
	}

	if _, err := p.Update(ctx, Profile{}); !errors.Is(err, intent.ErrInvalidRequest) {
		t.Errorf("Update() without name = %v, want ErrInvalidRequest", err)
	}
}
