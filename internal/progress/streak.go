package progress

import (
	"slices"
	"time"
)

const day = 24 * time.Hour

// utcDay truncates t to the start of its UTC calendar day.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// activeDays returns the distinct UTC days holding at least one event,
// oldest first.
func activeDays(events []Event) []time.Time {
	seen := make(map[time.Time]bool, len(events))
	days := make([]time.Time, 0, len(events))
	for _, e := range events {
		d := utcDay(e.CreatedAt)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	slices.SortFunc(days, time.Time.Compare)
	return days
}

// Streaks returns the current and longest runs of consecutive UTC days
// with a completion. The current run ends today when the user completed
// something today, otherwise at their most recent completion day.
func Streaks(events []Event, now time.Time) (current, longest int) {
	days := activeDays(events)
	if len(days) == 0 {
		return 0, 0
	}

	run := 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) == day {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	end := len(days) - 1
	today := utcDay(now)
	for end > 0 && days[end].After(today) {
		end--
	}
	current = 1
	for i := end; i > 0 && days[i].Sub(days[i-1]) == day; i-- {
		current++
	}
	return current, longest
}
