// Package wellness holds the daily wellness-tip cache, the offline fallback
// policy, the stress questionnaire, and the per-view session state machine.
package wellness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
)

const (
	// DefaultCacheKey is the single storage slot for the daily tip set.
	DefaultCacheKey = "preppysphere_daily_wellness"
	// DefaultCacheVersion tags the entry layout. Bump it to invalidate old entries.
	DefaultCacheVersion = "2"
)

// Entry is the persisted daily tip set.
type Entry struct {
	Version     string               `json:"version"`
	Date        string               `json:"date"` // UTC calendar date, YYYY-MM-DD
	Tips        []intent.WellnessTip `json:"tips"`
	StressLevel int                  `json:"stressLevel"`
}

// DailyCache keeps at most one general tip set per calendar day.
type DailyCache struct {
	store   cache.Store
	key     string
	version string
	now     func() time.Time
	mu      sync.Mutex
}

// CacheOption configures a DailyCache.
type CacheOption func(*DailyCache)

// WithKey sets the storage key.
func WithKey(key string) CacheOption {
	return func(c *DailyCache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithVersion sets the schema version tag.
func WithVersion(version string) CacheOption {
	return func(c *DailyCache) {
		if version != "" {
			c.version = version
		}
	}
}

// WithClock sets the time source used to decide what "today" is.
func WithClock(now func() time.Time) CacheOption {
	return func(c *DailyCache) {
		c.now = now
	}
}

// NewDailyCache creates a cache over store.
func NewDailyCache(store cache.Store, opts ...CacheOption) *DailyCache {
	c := &DailyCache{
		store:   store,
		key:     DefaultCacheKey,
		version: DefaultCacheVersion,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the cache's notion of the current calendar date.
func (c *DailyCache) Today() string {
	return c.now().UTC().Format(time.DateOnly)
}

// Read returns today's entry. Entries from another day, another version,
// with no tips, or that fail to parse are reported as absent.
func (c *DailyCache) Read(ctx context.Context) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx)
}

func (c *DailyCache) read(ctx context.Context) (Entry, bool, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read wellness cache: %w", err)
	}
	if !ok {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		slog.Warn("discarding unreadable wellness cache entry", "key", c.key, "error", err)
		return Entry{}, false, nil
	}
	if e.Version != c.version || e.Date != c.Today() || len(e.Tips) == 0 {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Write overwrites the slot with tips dated today.
func (c *DailyCache) Write(ctx context.Context, tips []intent.WellnessTip, stressLevel int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(ctx, Entry{
		Version:     c.version,
		Date:        c.Today(),
		Tips:        append([]intent.WellnessTip(nil), tips...),
		StressLevel: stressLevel,
	})
}

func (c *DailyCache) write(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal wellness cache: %w", err)
	}
	if err := c.store.Set(ctx, c.key, string(data)); err != nil {
		return fmt.Errorf("write wellness cache: %w", err)
	}
	return nil
}

// UpdateTip sets the completed flag of one cached tip. It reports false
// when there is no valid entry for today. An index outside the entry is an
// intent.ErrInvalidRequest.
func (c *DailyCache) UpdateTip(ctx context.Context, index int, completed bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok, err := c.read(ctx)
	if err != nil || !ok {
		return false, err
	}
	if index < 0 || index >= len(e.Tips) {
		return false, fmt.Errorf("%w: tip index %d out of range (have %d)", intent.ErrInvalidRequest, index, len(e.Tips))
	}
	e.Tips[index].Completed = completed
	if err := c.write(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}
