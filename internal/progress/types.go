package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

const (
	// StartingCoins is the coin balance of a newly created user.
	StartingCoins = 100
	// ExperiencePerLevel is the experience needed for each level.
	ExperiencePerLevel = 100
	// LevelUpCoins is credited once for every level gained.
	LevelUpCoins = 10
)

// LevelFor returns the level reached with the given total experience.
func LevelFor(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return experience/ExperiencePerLevel + 1
}

// Progress is one user's state for one lesson.
type Progress struct {
	UserID           int64      `json:"user_id"`
	LessonID         int64      `json:"lesson_id"`
	Completed        bool       `json:"completed"`
	Score            *int       `json:"score,omitempty"`
	Attempts         int        `json:"attempts"`
	FirstCompletedAt *time.Time `json:"first_completed_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Event is an append-only record of one completed lesson.
type Event struct {
	ID           uuid.UUID          `json:"id"`
	UserID       int64              `json:"user_id"`
	LessonID     int64              `json:"lesson_id"`
	Level        catalog.Level      `json:"level"`
	LessonType   catalog.LessonType `json:"lesson_type"`
	Experience   int                `json:"experience"`
	Coins        int                `json:"coins"`
	Score        *int               `json:"score,omitempty"`
	StudyMinutes int                `json:"study_minutes"`
	CreatedAt    time.Time          `json:"created_at"`
}

// User is a learner's profile and reward balances.
type User struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Experience int       `json:"experience"`
	Coins      int       `json:"coins"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AchievementType groups achievements by what earns them.
type AchievementType string

const (
	AchievementLesson AchievementType = "lesson"
	AchievementStreak AchievementType = "streak"
	AchievementLevel  AchievementType = "level"
)

// Achievement is earned once per user and never changes afterwards.
type Achievement struct {
	ID          uuid.UUID       `json:"id"`
	UserID      int64           `json:"user_id"`
	Code        string          `json:"code"`
	Type        AchievementType `json:"achievement_type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	BadgeURL    string          `json:"badge_url,omitempty"`
	EarnedAt    time.Time       `json:"earned_at"`
}

// Update is the write set of one recorded attempt. Stores persist it
// atomically.
type Update struct {
	Progress Progress
	Event    *Event // nil unless the attempt completed the lesson
	User     User
}

// LevelProgress summarizes a user's work at one level.
type LevelProgress struct {
	Level            catalog.Level `json:"level"`
	TotalLessons     int           `json:"total_lessons"`
	CompletedLessons int           `json:"completed_lessons"`
	TotalExperience  int           `json:"total_experience"`
	EarnedExperience int           `json:"earned_experience"`
}

// LevelMilestone is the day a user first reached a level.
type LevelMilestone struct {
	Level int    `json:"level"`
	Date  string `json:"date"` // YYYY-MM-DD, UTC
}

// Stats is derived from a user's completion history.
type Stats struct {
	UserID             int64              `json:"user_id"`
	TotalStudyTime     int                `json:"total_study_time"` // minutes
	LessonsCompleted   int                `json:"lessons_completed"`
	CurrentStreak      int                `json:"current_streak"`
	LongestStreak      int                `json:"longest_streak"`
	FavoriteLessonType catalog.LessonType `json:"favorite_lesson_type,omitempty"`
	WeeklyActivity     []int              `json:"weekly_activity"` // oldest day first, ending today
	LevelProgression   []LevelMilestone   `json:"level_progression"`
}

// UserState is the per-user aggregate read by the leaderboard.
type UserState struct {
	User             User
	CurrentStreak    int
	LessonsCompleted int
}

// dateLayout formats UTC calendar days.
const dateLayout = "2006-01-02"
