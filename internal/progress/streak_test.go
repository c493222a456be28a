package progress_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-quest/internal/progress"
)

func eventsOn(days ...string) []progress.Event {
	out := make([]progress.Event, 0, len(days))
	for _, d := range days {
		ts, err := time.Parse(time.DateTime, d)
		if err != nil {
			panic(err)
		}
		out = append(out, progress.Event{CreatedAt: ts})
	}
	return out
}

func TestStreaks(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		events      []progress.Event
		wantCurrent int
		wantLongest int
	}{
		{"no events", nil, 0, 0},
		{"today only", eventsOn("2024-03-10 08:00:00"), 1, 1},
		{
			"run ending today",
			eventsOn("2024-03-08 23:59:59", "2024-03-09 00:00:00", "2024-03-10 07:00:00"),
			3, 3,
		},
		{
			"several events on one day count once",
			eventsOn("2024-03-09 01:00:00", "2024-03-09 05:00:00", "2024-03-10 09:00:00"),
			2, 2,
		},
		{
			"run ending before today keeps its length",
			eventsOn("2024-03-05 10:00:00", "2024-03-06 10:00:00", "2024-03-07 10:00:00"),
			3, 3,
		},
		{
			"gap resets current",
			eventsOn(
				"2024-03-01 10:00:00", "2024-03-02 10:00:00", "2024-03-03 10:00:00", "2024-03-04 10:00:00",
				"2024-03-09 10:00:00", "2024-03-10 10:00:00",
			),
			2, 4,
		},
		{
			"unsorted input",
			eventsOn("2024-03-10 10:00:00", "2024-03-08 10:00:00", "2024-03-09 10:00:00"),
			3, 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := progress.Streaks(tt.events, now)
			if current != tt.wantCurrent {
				t.Errorf("current = %d, want %d", current, tt.wantCurrent)
			}
			if longest != tt.wantLongest {
				t.Errorf("longest = %d, want %d", longest, tt.wantLongest)
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{2400, 25},
		{-10, 1},
	}
	for _, tt := range tests {
		if got := progress.LevelFor(tt.xp); got != tt.want {
			t.Errorf("LevelFor(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}
