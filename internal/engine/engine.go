// Package engine wires the catalog, answer evaluation, rewards, progress
// tracking and leaderboards into the operations transports call.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/leaderboard"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
	"github.com/p-n-ai/pai-quest/internal/progress"
	"github.com/p-n-ai/pai-quest/internal/quiz"
	"github.com/p-n-ai/pai-quest/internal/rewards"
)

const (
	maxScore        = 100
	maxStudyMinutes = 24 * 60
)

// Config holds dependencies for the engine.
type Config struct {
	Catalog  *catalog.Catalog  // required
	Store    progress.Store    // defaults to a MemoryStore
	Cache    leaderboard.Cache // optional
	Notifier Notifier          // defaults to NopNotifier
	Now      func() time.Time  // defaults to time.Now
}

// Engine is the progress and rewards core. It is safe for concurrent use.
type Engine struct {
	catalog   *catalog.Catalog
	evaluator *quiz.Evaluator
	tracker   *progress.Tracker
	ranker    *leaderboard.Ranker
	notifier  Notifier
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	tracker := progress.NewTracker(progress.TrackerConfig{
		Store:   cfg.Store,
		Lessons: cfg.Catalog,
		Now:     cfg.Now,
	})
	return &Engine{
		catalog:   cfg.Catalog,
		evaluator: quiz.NewEvaluator(cfg.Catalog),
		tracker:   tracker,
		ranker:    leaderboard.NewRanker(tracker, cfg.Cache),
		notifier:  notifier,
	}, nil
}

// Fingerprint identifies the loaded catalog content.
func (e *Engine) Fingerprint() string {
	return e.catalog.Fingerprint()
}

// ListLessons filters lessons by level and type. Empty filters match
// everything and unknown values match nothing.
func (e *Engine) ListLessons(level, typ string) []catalog.Lesson {
	return e.catalog.ListLessons(catalog.Level(level), catalog.LessonType(typ))
}

// GetLesson returns a lesson or an ErrNotFound error.
func (e *Engine) GetLesson(id int64) (catalog.Lesson, error) {
	return e.catalog.GetLesson(id)
}

// QuestionsForLesson returns the lesson's questions, empty when it has none.
func (e *Engine) QuestionsForLesson(lessonID int64) []catalog.Question {
	return e.catalog.QuestionsForLesson(lessonID)
}

// SubmitAnswer checks an answer against the question's canonical answer.
// It records nothing.
func (e *Engine) SubmitAnswer(questionID int64, answer string) (quiz.Result, error) {
	return e.evaluator.Evaluate(questionID, answer)
}

// CompleteRequest is a lesson completion submitted by a user.
type CompleteRequest struct {
	LessonID     int64
	UserID       int64
	Score        *int
	StudyMinutes int
}

// CompletionResult reports what a completion earned.
type CompletionResult struct {
	LessonID         int64                  `json:"lesson_id"`
	UserID           int64                  `json:"user_id"`
	ExperienceEarned int                    `json:"experience_earned"`
	CoinsEarned      int                    `json:"coins_earned"`
	Score            *int                   `json:"score"`
	BonusApplied     bool                   `json:"bonus_applied"`
	Attempts         int                    `json:"attempts"`
	Level            int                    `json:"level"`
	LevelsGained     int                    `json:"levels_gained"`
	NewAchievements  []progress.Achievement `json:"new_achievements"`
}

// CompleteLesson scores a completion, records it against the user and
// returns the rewards. A score of BonusThreshold or more earns 1.2x.
func (e *Engine) CompleteLesson(ctx context.Context, req CompleteRequest) (CompletionResult, error) {
	const op = "engine.CompleteLesson"

	lesson, err := e.catalog.GetLesson(req.LessonID)
	if err != nil {
		return CompletionResult{}, err
	}
	if req.UserID <= 0 {
		return CompletionResult{}, apperr.Invalid(op, "user_id must be positive")
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > maxScore) {
		return CompletionResult{}, apperr.Invalid(op, "score must be between 0 and %d, got %d", maxScore, *req.Score)
	}
	if req.StudyMinutes < 0 || req.StudyMinutes > maxStudyMinutes {
		return CompletionResult{}, apperr.Invalid(op, "study_minutes must be between 0 and %d", maxStudyMinutes)
	}

	reward := rewards.Calculate(lesson, req.Score)
	outcome, err := e.tracker.RecordCompletion(ctx, progress.Completion{
		UserID:       req.UserID,
		Lesson:       lesson,
		Completed:    true,
		Score:        req.Score,
		StudyMinutes: req.StudyMinutes,
		Experience:   reward.Experience,
		Coins:        reward.Coins,
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("record completion: %w", err)
	}

	result := CompletionResult{
		LessonID:         lesson.ID,
		UserID:           req.UserID,
		ExperienceEarned: reward.Experience,
		CoinsEarned:      reward.Coins,
		Score:            req.Score,
		BonusApplied:     reward.Bonus,
		Attempts:         outcome.Progress.Attempts,
		Level:            outcome.User.Level,
		LevelsGained:     outcome.LevelsGained,
		NewAchievements:  outcome.NewAchievements,
	}

	slog.Info("lesson completed",
		"user_id", req.UserID,
		"lesson_id", lesson.ID,
		"experience", reward.Experience,
		"coins", reward.Coins,
		"bonus", reward.Bonus,
		"attempts", result.Attempts,
	)

	e.ranker.Invalidate(ctx)
	e.notifier.CompletionRecorded(ctx, result)
	return result, nil
}

// LevelProgress reports how much of a level the user has completed.
func (e *Engine) LevelProgress(ctx context.Context, userID int64, level string) (progress.LevelProgress, error) {
	return e.tracker.LevelProgress(ctx, userID, catalog.Level(level))
}

// UserStats derives the user's statistics from their history.
func (e *Engine) UserStats(ctx context.Context, userID int64) (progress.Stats, error) {
	return e.tracker.UserStats(ctx, userID)
}

// Leaderboard ranks users for period ("" means all_time) and returns at
// most limit entries.
func (e *Engine) Leaderboard(ctx context.Context, period string, limit int) ([]leaderboard.Entry, error) {
	p, err := leaderboard.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	return e.ranker.Rank(ctx, p, limit)
}

// ExportLeaderboard writes the full ranking for period as XLSX.
func (e *Engine) ExportLeaderboard(ctx context.Context, w io.Writer, period string) error {
	p, err := leaderboard.ParsePeriod(period)
	if err != nil {
		return err
	}
	entries, err := e.ranker.Rank(ctx, p, math.MaxInt)
	if err != nil {
		return err
	}
	return leaderboard.ExportXLSX(w, p, e.tracker.Now(), entries)
}

// Achievements lists a user's achievements, or all of them when userID is 0.
func (e *Engine) Achievements(ctx context.Context, userID int64) ([]progress.Achievement, error) {
	return e.tracker.Achievements(ctx, userID)
}

// RegisterUser creates or renames a user.
func (e *Engine) RegisterUser(ctx context.Context, userID int64, username string) (progress.User, error) {
	u, err := e.tracker.RegisterUser(ctx, userID, username)
	if err != nil {
		return progress.User{}, err
	}
	e.ranker.Invalidate(ctx)
	return u, nil
}

// GetUser returns a user's profile or an ErrNotFound error.
func (e *Engine) GetUser(ctx context.Context, userID int64) (progress.User, error) {
	return e.tracker.GetUser(ctx, userID)
}
