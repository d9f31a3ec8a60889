package wellness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/intent"
)

// DefaultStressLevel is the slider position of a fresh session.
const DefaultStressLevel = 5

// Source says where a displayed tip set came from.
type Source string

const (
	SourceNone     Source = ""
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// FetchOptions tunes a single tip fetch.
type FetchOptions struct {
	// ForceRefresh skips the daily cache for a general request.
	ForceRefresh bool
}

// Result is a successful tip fetch.
type Result struct {
	Tips        []intent.WellnessTip `json:"tips"`
	StressLevel int                  `json:"stress_level"`
	Source      Source               `json:"source"`
}

// TipSource fetches tips; the AI gateway implements it.
type TipSource interface {
	WellnessTips(ctx context.Context, req intent.WellnessTipsRequest, opts FetchOptions) (Result, error)
}

// State is the phase of a wellness view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotFailed is returned by Retry outside the failed state.
var ErrNotFailed = errors.New("retry is only available after a failure")

// Snapshot is what the view renders.
type Snapshot struct {
	State       State                `json:"-"`
	StateName   string               `json:"state"`
	Source      Source               `json:"source,omitempty"`
	Query       string               `json:"query,omitempty"`
	StressLevel int                  `json:"stress_level"`
	Tips        []intent.WellnessTip `json:"tips"`
	Fallback    bool                 `json:"fallback"`
	Failure     string               `json:"failure,omitempty"`
	Retryable   bool                 `json:"retryable,omitempty"`
}

// Session is the state machine of one wellness view:
// Idle -> Loading -> Success(live|cached) | Failed(kind).
// Failed only moves back to Loading through Retry.
type Session struct {
	src      TipSource
	cache    *DailyCache
	fallback *FallbackTable

	mu      sync.Mutex
	state   State
	source  Source
	query   string
	stress  int
	tips    []intent.WellnessTip
	failure ai.Kind
	force   bool // force flag of the last fetch, replayed by Retry

	// gen numbers fetches. Only the reply of the latest fetch is applied.
	gen uint64
	// shown is the query the displayed tips answer; view counts tip sets applied.
	shown string
	view  uint64
}

// NewSession creates an idle session. cache may be nil.
func NewSession(src TipSource, cache *DailyCache) (*Session, error) {
	table, err := DefaultFallbackTable()
	if err != nil {
		return nil, err
	}
	return &Session{
		src:      src,
		cache:    cache,
		fallback: table,
		stress:   DefaultStressLevel,
	}, nil
}

// Snapshot returns a copy of the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:       s.state,
		StateName:   s.state.String(),
		Source:      s.source,
		Query:       s.query,
		StressLevel: s.stress,
		Tips:        append([]intent.WellnessTip{}, s.tips...),
		Fallback:    s.source == SourceFallback,
	}
	if s.state == StateFailed {
		snap.Failure = s.failure.String()
		snap.Retryable = s.failure.Retryable()
	}
	return snap
}

// SetStressLevel moves the slider. It does not fetch.
func (s *Session) SetStressLevel(level int) error {
	if level < intent.MinStressLevel || level > intent.MaxStressLevel {
		return fmt.Errorf("%w: stress level %d outside %d-%d",
			intent.ErrInvalidRequest, level, intent.MinStressLevel, intent.MaxStressLevel)
	}
	s.mu.Lock()
	s.stress = level
	s.mu.Unlock()
	return nil
}

// Load is the initial fetch when the view mounts.
func (s *Session) Load(ctx context.Context) error {
	return s.fetch(ctx, "", false)
}

// Search fetches tips for a problem. A blank query returns to the daily view.
func (s *Session) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.fetch(ctx, "", false)
	}
	return s.fetch(ctx, query, true)
}

// Refresh refetches the daily view, bypassing the cache.
func (s *Session) Refresh(ctx context.Context) error {
	return s.fetch(ctx, "", true)
}

// ApplyStressCheck scores the questionnaire, updates the stress level and refreshes.
func (s *Session) ApplyStressCheck(ctx context.Context, q *Questionnaire, checked []int) error {
	if err := s.SetStressLevel(q.Score(checked)); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Retry replays the last fetch after a failure.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateFailed {
		s.mu.Unlock()
		return ErrNotFailed
	}
	query, force := s.query, s.force
	s.mu.Unlock()
	return s.fetch(ctx, query, force)
}

// ToggleTip flips a tip's completed flag. On the daily view the change is
// written to the cache first; the displayed flag only changes once that
// write succeeds.
func (s *Session) ToggleTip(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.tips) {
		n := len(s.tips)
		s.mu.Unlock()
		return false, fmt.Errorf("%w: tip index %d out of range (have %d)", intent.ErrInvalidRequest, index, n)
	}
	completed := !s.tips[index].Completed
	persist := s.shown == "" && s.source != SourceFallback && s.cache != nil
	view := s.view
	s.mu.Unlock()

	if persist {
		if _, err := s.cache.UpdateTip(ctx, index, completed); err != nil {
			return !completed, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if view == s.view && index < len(s.tips) {
		s.tips[index].Completed = completed
	}
	return completed, nil
}

func (s *Session) fetch(ctx context.Context, query string, force bool) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.query = query
	s.force = force
	req := intent.WellnessTipsRequest{StressLevel: s.stress, Query: query}
	s.mu.Unlock()

	res, err := s.src.WellnessTips(ctx, req, FetchOptions{ForceRefresh: force})

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		// A later fetch owns the view.
		slog.Debug("dropping superseded wellness reply", "query", query != "")
		return err
	}
	s.shown = query
	s.view++

	if err != nil {
		s.state = StateFailed
		s.failure = ai.KindOf(err)
		s.source = SourceFallback
		s.tips = s.fallback.Tips(query)
		slog.Warn("wellness tips unavailable, showing local fallback",
			"query", query != "",
			"kind", s.failure.String(),
			"error", err,
		)
		return err
	}

	s.state = StateSuccess
	s.source = res.Source
	s.tips = append([]intent.WellnessTip(nil), res.Tips...)
	if res.StressLevel >= intent.MinStressLevel && res.StressLevel <= intent.MaxStressLevel {
		s.stress = res.StressLevel
	}
	return nil
}
