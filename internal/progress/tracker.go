// Package progress records lesson attempts and derives per-user progress,
// statistics, streaks and achievements from them.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

// Lessons is the catalog view the tracker aggregates over.
type Lessons interface {
	ListLessons(level catalog.Level, typ catalog.LessonType) []catalog.Lesson
}

// TrackerConfig holds dependencies for the tracker.
type TrackerConfig struct {
	Store   Store // defaults to a MemoryStore
	Lessons Lessons
	Now     func() time.Time // defaults to time.Now
}

// Tracker serializes each user's writes and aggregates their history.
// Different users never wait on each other.
type Tracker struct {
	store   Store
	lessons Lessons
	now     func() time.Time
	locks   sync.Map // map[int64]*sync.Mutex
}

// NewTracker creates a tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:   store,
		lessons: cfg.Lessons,
		now:     now,
	}
}

// Completion is one attempt at a lesson.
type Completion struct {
	UserID       int64
	Lesson       catalog.Lesson
	Completed    bool
	Score        *int
	StudyMinutes int
	Experience   int // credited only when Completed
	Coins        int
}

// Outcome is the state after a recorded attempt.
type Outcome struct {
	Progress        Progress
	User            User
	LevelsGained    int
	NewAchievements []Achievement
}

// RecordCompletion upserts the user's progress for the lesson. Attempts
// always grow by one and Completed/Score take the latest values. A
// completed attempt also appends an event, credits the rewards, applies
// level-up coins and grants any newly earned achievements.
func (t *Tracker) RecordCompletion(ctx context.Context, c Completion) (Outcome, error) {
	const op = "progress.RecordCompletion"
	if c.UserID <= 0 {
		return Outcome{}, apperr.Invalid(op, "user_id must be positive")
	}
	if c.Experience < 0 || c.Coins < 0 {
		return Outcome{}, apperr.Invalid(op, "rewards must be non-negative")
	}

	unlock, err := t.lock(ctx, c.UserID)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	now := t.now().UTC()
	user, err := t.loadUser(ctx, c.UserID, now)
	if err != nil {
		return Outcome{}, err
	}

	p, ok, err := t.store.GetProgress(ctx, c.UserID, c.Lesson.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		p = Progress{UserID: c.UserID, LessonID: c.Lesson.ID}
	}
	p.Attempts++
	p.Completed = c.Completed
	p.Score = c.Score
	p.UpdatedAt = now
	if c.Completed && p.FirstCompletedAt == nil {
		p.FirstCompletedAt = &now
	}

	update := Update{Progress: p}
	gained := 0
	if c.Completed {
		update.Event = &Event{
			ID:           uuid.New(),
			UserID:       c.UserID,
			LessonID:     c.Lesson.ID,
			Level:        c.Lesson.Level,
			LessonType:   c.Lesson.Type,
			Experience:   c.Experience,
			Coins:        c.Coins,
			Score:        c.Score,
			StudyMinutes: c.StudyMinutes,
			CreatedAt:    now,
		}

		user.Experience += c.Experience
		user.Coins += c.Coins
		newLevel := LevelFor(user.Experience)
		if newLevel > user.Level {
			gained = newLevel - user.Level
			user.Coins += gained * LevelUpCoins
		}
		user.Level = newLevel
		user.UpdatedAt = now
	}
	update.User = user

	if err := t.store.Apply(ctx, update); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Progress:        update.Progress,
		User:            user,
		LevelsGained:    gained,
		NewAchievements: []Achievement{},
	}
	if !c.Completed {
		return out, nil
	}

	if gained > 0 {
		slog.Info("user leveled up",
			"user_id", c.UserID,
			"level", user.Level,
			"levels_gained", gained,
		)
	}

	// The completion is already committed; a grant failure must not turn
	// it into an error a client would retry.
	granted, err := t.grantAchievements(ctx, user, now)
	if err != nil {
		slog.Warn("achievement grant failed",
			"user_id", c.UserID,
			"lesson_id", c.Lesson.ID,
			"error", err,
		)
		return out, nil
	}
	out.NewAchievements = granted
	return out, nil
}

func (t *Tracker) grantAchievements(ctx context.Context, user User, now time.Time) ([]Achievement, error) {
	held, err := t.store.ListAchievements(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	has := make(map[string]bool, len(held))
	for _, a := range held {
		has[a.Code] = true
	}

	events, err := t.store.ListEvents(ctx, user.UserID, time.Time{})
	if err != nil {
		return nil, err
	}
	current, _ := Streaks(events, now)
	s := standing{
		completions:   len(events),
		currentStreak: current,
		level:         user.Level,
	}

	granted := []Achievement{}
	for _, r := range achievementRules {
		if has[r.code] || !r.earned(s) {
			continue
		}
		a := Achievement{
			ID:          uuid.New(),
			UserID:      user.UserID,
			Code:        r.code,
			Type:        r.kind,
			Title:       r.title,
			Description: r.description,
			BadgeURL:    badgeURL(r.code),
			EarnedAt:    now,
		}
		added, err := t.store.AddAchievement(ctx, a)
		if err != nil {
			return nil, err
		}
		if !added {
			continue
		}
		slog.Info("achievement earned", "user_id", user.UserID, "code", r.code)
		granted = append(granted, a)
	}
	return granted, nil
}

// LevelProgress totals the catalog lessons at level and the share of them
// the user has ever completed. An unknown level has no lessons.
func (t *Tracker) LevelProgress(ctx context.Context, userID int64, level catalog.Level) (LevelProgress, error) {
	out := LevelProgress{Level: level}
	if t.lessons == nil {
		return out, nil
	}

	rows, err := t.store.ListProgress(ctx, userID)
	if err != nil {
		return LevelProgress{}, err
	}
	done := make(map[int64]bool, len(rows))
	for _, p := range rows {
		if p.FirstCompletedAt != nil {
			done[p.LessonID] = true
		}
	}

	for _, l := range t.lessons.ListLessons(level, "") {
		out.TotalLessons++
		out.TotalExperience += l.ExperienceReward
		if done[l.ID] {
			out.CompletedLessons++
			out.EarnedExperience += l.ExperienceReward
		}
	}
	return out, nil
}

// UserStats derives study time, streaks and activity from the user's
// completion events. A user without history gets zero values.
func (t *Tracker) UserStats(ctx context.Context, userID int64) (Stats, error) {
	now := t.now().UTC()
	events, err := t.store.ListEvents(ctx, userID, time.Time{})
	if err != nil {
		return Stats{}, err
	}
	rows, err := t.store.ListProgress(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		UserID:           userID,
		WeeklyActivity:   weeklyActivity(events, now),
		LevelProgression: []LevelMilestone{},
	}
	for _, p := range rows {
		if p.FirstCompletedAt != nil {
			stats.LessonsCompleted++
		}
	}
	for _, e := range events {
		stats.TotalStudyTime += e.StudyMinutes
	}
	stats.CurrentStreak, stats.LongestStreak = Streaks(events, now)
	stats.FavoriteLessonType = favoriteType(events)

	user, err := t.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		stats.LevelProgression = levelProgression(user.CreatedAt, events)
	case errors.Is(err, apperr.ErrNotFound):
		if len(events) > 0 {
			stats.LevelProgression = levelProgression(events[0].CreatedAt, events)
		}
	default:
		return Stats{}, err
	}
	return stats, nil
}

// weeklyActivity counts events per UTC day for the seven days ending today.
func weeklyActivity(events []Event, now time.Time) []int {
	counts := make([]int, 7)
	today := utcDay(now)
	for _, e := range events {
		ago := int(today.Sub(utcDay(e.CreatedAt)) / day)
		if ago >= 0 && ago < len(counts) {
			counts[len(counts)-1-ago]++
		}
	}
	return counts
}

// favoriteType is the most completed lesson type. Ties go to the type
// listed first in catalog.LessonTypes.
func favoriteType(events []Event) catalog.LessonType {
	counts := make(map[catalog.LessonType]int)
	for _, e := range events {
		counts[e.LessonType]++
	}
	var fav catalog.LessonType
	best := 0
	for _, typ := range catalog.LessonTypes {
		if counts[typ] > best {
			fav, best = typ, counts[typ]
		}
	}
	return fav
}

// levelProgression replays experience gains and records the day each level
// was first reached, starting with level 1 on the day the user joined.
func levelProgression(joined time.Time, events []Event) []LevelMilestone {
	out := []LevelMilestone{{Level: 1, Date: joined.UTC().Format(dateLayout)}}
	xp, level := 0, 1
	for _, e := range events {
		xp += e.Experience
		for next := LevelFor(xp); level < next; {
			level++
			out = append(out, LevelMilestone{Level: level, Date: e.CreatedAt.UTC().Format(dateLayout)})
		}
	}
	return out
}

// Achievements lists a user's achievements, or everyone's when userID is 0.
func (t *Tracker) Achievements(ctx context.Context, userID int64) ([]Achievement, error) {
	if userID < 0 {
		return nil, apperr.Invalid("progress.Achievements", "user_id must not be negative")
	}
	return t.store.ListAchievements(ctx, userID)
}

// Snapshot returns the aggregate state of every known user, ordered by
// user ID.
func (t *Tracker) Snapshot(ctx context.Context) ([]UserState, error) {
	now := t.now().UTC()
	users, err := t.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	events, err := t.store.ListAllEvents(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	byUser := make(map[int64][]Event)
	for _, e := range events {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	out := make([]UserState, 0, len(users))
	for _, u := range users {
		history := byUser[u.UserID]
		current, _ := Streaks(history, now)
		lessons := make(map[int64]bool)
		for _, e := range history {
			lessons[e.LessonID] = true
		}
		out = append(out, UserState{
			User:             u,
			CurrentStreak:    current,
			LessonsCompleted: len(lessons),
		})
	}
	return out, nil
}

// ExperienceSince sums each user's experience gains at or after since.
// Users without gains in the window are absent from the map.
func (t *Tracker) ExperienceSince(ctx context.Context, since time.Time) (map[int64]int, error) {
	events, err := t.store.ListAllEvents(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int)
	for _, e := range events {
		out[e.UserID] += e.Experience
	}
	return out, nil
}

// Now returns the tracker's current time in UTC.
func (t *Tracker) Now() time.Time {
	return t.now().UTC()
}

// RegisterUser creates the user if needed and sets a non-empty username.
func (t *Tracker) RegisterUser(ctx context.Context, userID int64, username string) (User, error) {
	if userID <= 0 {
		return User{}, apperr.Invalid("progress.RegisterUser", "user_id must be positive")
	}

	unlock, err := t.lock(ctx, userID)
	if err != nil {
		return User{}, err
	}
	defer unlock()

	now := t.now().UTC()
	user, err := t.loadUser(ctx, userID, now)
	if err != nil {
		return User{}, err
	}
	if username != "" {
		user.Username = username
	}
	user.UpdatedAt = now
	if err := t.store.SaveUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUser returns a stored user or an ErrNotFound error.
func (t *Tracker) GetUser(ctx context.Context, userID int64) (User, error) {
	return t.store.GetUser(ctx, userID)
}

// loadUser returns the stored user or a fresh one that is not yet saved.
func (t *Tracker) loadUser(ctx context.Context, userID int64, now time.Time) (User, error) {
	u, err := t.store.GetUser(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return User{
		UserID:    userID,
		Username:  "learner-" + strconv.FormatInt(userID, 10),
		Coins:     StartingCoins,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UserLocker is implemented by stores shared between processes. LockUser
// blocks until no other holder has the user, and the returned func
// releases it.
type UserLocker interface {
	LockUser(ctx context.Context, userID int64) (func(), error)
}

// lock serializes writes for userID within this process and, when the
// store supports it, across every process sharing the store.
func (t *Tracker) lock(ctx context.Context, userID int64) (func(), error) {
	v, _ := t.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	locker, ok := t.store.(UserLocker)
	if !ok {
		return mu.Unlock, nil
	}
	release, err := locker.LockUser(ctx, userID)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return func() {
		release()
		mu.Unlock()
	}, nil
}
