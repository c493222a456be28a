package leaderboard

import (
	"time"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

// Period selects the experience window a ranking sorts on.
type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	AllTime Period = "all_time"
)

// Periods lists every supported period.
var Periods = []Period{Weekly, Monthly, AllTime}

// ParsePeriod maps s to a Period. An empty string means AllTime.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return AllTime, nil
	}
	for _, p := range Periods {
		if Period(s) == p {
			return p, nil
		}
	}
	return "", apperr.Invalid("leaderboard.ParsePeriod", "unknown period %q", s)
}

// Start returns the first instant of the period containing now, in UTC.
// Weeks start on Monday. AllTime returns the zero time.
func (p Period) Start(now time.Time) time.Time {
	now = now.UTC()
	y, m, d := now.Date()
	switch p {
	case Weekly:
		offset := (int(now.Weekday()) + 6) % 7 // days since Monday
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}
