package leaderboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quest/internal/leaderboard"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    leaderboard.Period
		wantErr bool
	}{
		{"", leaderboard.AllTime, false},
		{"all_time", leaderboard.AllTime, false},
		{"weekly", leaderboard.Weekly, false},
		{"monthly", leaderboard.Monthly, false},
		{"daily", "", true},
		{"Weekly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := leaderboard.ParsePeriod(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, apperr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name   string
		period leaderboard.Period
		now    time.Time
		want   time.Time
	}{
		{
			"weekly on a Wednesday",
			leaderboard.Weekly,
			time.Date(2024, time.March, 6, 15, 30, 0, 0, time.UTC),
			time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"weekly on a Monday",
			leaderboard.Weekly,
			time.Date(2024, time.March, 4, 0, 0, 1, 0, time.UTC),
			time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"weekly on a Sunday crosses the month",
			leaderboard.Weekly,
			time.Date(2024, time.March, 3, 23, 59, 0, 0, time.UTC),
			time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			"weekly uses UTC",
			leaderboard.Weekly,
			time.Date(2024, time.March, 4, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			"monthly",
			leaderboard.Monthly,
			time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"all time",
			leaderboard.AllTime,
			time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC),
			time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.period.Start(tt.now)), "Start() = %v, want %v", tt.period.Start(tt.now), tt.want)
		})
	}
}
