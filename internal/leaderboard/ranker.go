// Package leaderboard ranks users by experience over a period.
package leaderboard

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
	"github.com/p-n-ai/pai-quest/internal/progress"
)

// Entry is one ranked user. Experience is the amount earned within the
// requested period.
type Entry struct {
	Rank                  int    `json:"rank"`
	UserID                int64  `json:"user_id"`
	Username              string `json:"username"`
	Level                 int    `json:"level"`
	Experience            int    `json:"experience"`
	CurrentStreak         int    `json:"current_streak"`
	TotalLessonsCompleted int    `json:"total_lessons_completed"`
}

// Source is the aggregate user state rankings are built from.
type Source interface {
	Snapshot(ctx context.Context) ([]progress.UserState, error)
	ExperienceSince(ctx context.Context, since time.Time) (map[int64]int, error)
	Now() time.Time
}

// Cache stores full rankings per period.
type Cache interface {
	Get(ctx context.Context, p Period) ([]Entry, bool, error)
	Set(ctx context.Context, p Period, entries []Entry) error
	Invalidate(ctx context.Context) error
}

// Ranker builds leaderboards, consulting an optional cache first.
type Ranker struct {
	src   Source
	cache Cache

	// generation is bumped by Invalidate. A ranking computed across a bump
	// is served but not cached.
	generation atomic.Uint64
}

// NewRanker creates a ranker. cache may be nil.
func NewRanker(src Source, cache Cache) *Ranker {
	return &Ranker{src: src, cache: cache}
}

// Rank returns at most limit entries for period in leaderboard order:
// experience descending, then level descending, then user ID ascending.
// Every known user takes part, including those with no experience in the
// window.
func (r *Ranker) Rank(ctx context.Context, p Period, limit int) ([]Entry, error) {
	const op = "leaderboard.Rank"
	if limit < 0 {
		return nil, apperr.Invalid(op, "limit must not be negative, got %d", limit)
	}
	if !slices.Contains(Periods, p) {
		return nil, apperr.Invalid(op, "unknown period %q", p)
	}
	if limit == 0 {
		return []Entry{}, nil
	}

	all, err := r.ranking(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return slices.Clone(all), nil
}

// Invalidate drops cached rankings. Cache failures are logged, not returned.
func (r *Ranker) Invalidate(ctx context.Context) {
	r.generation.Add(1)
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		slog.Warn("leaderboard cache invalidation failed", "error", err)
	}
}

func (r *Ranker) ranking(ctx context.Context, p Period) ([]Entry, error) {
	if r.cache != nil {
		entries, ok, err := r.cache.Get(ctx, p)
		switch {
		case err != nil:
			slog.Warn("leaderboard cache read failed", "period", p, "error", err)
		case ok:
			return entries, nil
		}
	}

	gen := r.generation.Load()
	entries, err := r.compute(ctx, p)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && r.generation.Load() == gen {
		if err := r.cache.Set(ctx, p, entries); err != nil {
			slog.Warn("leaderboard cache write failed", "period", p, "error", err)
		}
	}
	return entries, nil
}

func (r *Ranker) compute(ctx context.Context, p Period) ([]Entry, error) {
	states, err := r.src.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var window map[int64]int
	if p != AllTime {
		window, err = r.src.ExperienceSince(ctx, p.Start(r.src.Now()))
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(states))
	for _, s := range states {
		xp := s.User.Experience
		if window != nil {
			xp = window[s.User.UserID]
		}
		entries = append(entries, Entry{
			UserID:                s.User.UserID,
			Username:              s.User.Username,
			Level:                 s.User.Level,
			Experience:            xp,
			CurrentStreak:         s.CurrentStreak,
			TotalLessonsCompleted: s.LessonsCompleted,
		})
	}

	slices.SortFunc(entries, compareEntries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Experience, a.Experience); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Level, a.Level); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}
