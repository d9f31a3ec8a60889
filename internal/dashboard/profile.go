// Package dashboard keeps the student's profile, daily streak, and to-do
// lists in the key-value store.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
)

// Storage keys.
const (
	ProfileKey        = "preppysphere_profile"
	TasksKey          = "preppysphere_tasks"
	FormalityTasksKey = "preppysphere_formality_tasks"
)

// Profile is the student's profile. Streak counts consecutive active days.
type Profile struct {
	Name           string `json:"name"`
	Username       string `json:"username,omitempty"`
	Major          string `json:"major"`
	CollegeCampus  string `json:"collegeCampus"`
	Department     string `json:"department"`
	Grade          string `json:"grade"`
	Streak         int    `json:"streak"`
	LastActiveDate string `json:"lastActiveDate,omitempty"`
}

// DefaultProfile is shown before the student fills anything in.
func DefaultProfile() Profile {
	return Profile{Name: "Scholar", Major: "Undecided"}
}

// TouchStreak records a visit on today's UTC date and reports whether the
// profile changed. A visit on the day after the last one extends the
// streak, a longer gap restarts it at 1, and a repeat visit is a no-op.
func TouchStreak(p Profile, today time.Time) (Profile, bool) {
	day := today.UTC().Format(time.DateOnly)
	if p.LastActiveDate == day {
		return p, false
	}

	last, err := time.Parse(time.DateOnly, p.LastActiveDate)
	switch {
	case p.LastActiveDate == "" || err != nil:
		p.Streak = 1
	default:
		current, _ := time.Parse(time.DateOnly, day)
		gap := int(current.Sub(last).Hours() / 24)
		switch {
		case gap == 1:
			p.Streak++
		case gap > 1:
			p.Streak = 1
		}
	}
	p.LastActiveDate = day
	return p, true
}

// Profiles loads and saves the profile.
type Profiles struct {
	store cache.Store
	now   func() time.Time
	mu    sync.Mutex
}

func NewProfiles(store cache.Store, now func() time.Time) *Profiles {
	if now == nil {
		now = time.Now
	}
	return &Profiles{store: store, now: now}
}

// Visit returns the profile with today's visit applied to the streak.
func (p *Profiles) Visit(ctx context.Context) (Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prof, err := p.load(ctx)
	if err != nil {
		return Profile{}, err
	}
	prof, changed := TouchStreak(prof, p.now())
	if changed {
		if err := p.save(ctx, prof); err != nil {
			return Profile{}, err
		}
	}
	return prof, nil
}

// Update replaces the editable fields. The streak is kept.
func (p *Profiles) Update(ctx context.Context, in Profile) (Profile, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Profile{}, fmt.Errorf("%w: name is required", intent.ErrInvalidRequest)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.load(ctx)
	if err != nil {
		return Profile{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Streak = cur.Streak
	in.LastActiveDate = cur.LastActiveDate
	if err := p.save(ctx, in); err != nil {
		return Profile{}, err
	}
	return in, nil
}

func (p *Profiles) load(ctx context.Context) (Profile, error) {
	raw, ok, err := p.store.Get(ctx, ProfileKey)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if !ok {
		return DefaultProfile(), nil
	}
	var prof Profile
	if err := json.Unmarshal([]byte(raw), &prof); err != nil {
		slog.Warn("discarding unreadable profile", "error", err)
		return DefaultProfile(), nil
	}
	return prof, nil
}

func (p *Profiles) save(ctx context.Context, prof Profile) error {
	data, err := json.Marshal(prof)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := p.store.Set(ctx, ProfileKey, string(data)); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
