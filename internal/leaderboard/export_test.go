package leaderboard_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quest/internal/leaderboard"
)

func TestExportXLSX(t *testing.T) {
	entries := []leaderboard.Entry{
		{Rank: 1, UserID: 7, Username: "EnglishMaster", Level: 25, Experience: 2450, CurrentStreak: 30, TotalLessonsCompleted: 156},
		{Rank: 2, UserID: 3, Username: "learner-3", Level: 1, Experience: 0},
	}
	at := time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, leaderboard.ExportXLSX(&buf, leaderboard.Weekly, at, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{"weekly"}, f.GetSheetList())

	rows, err := f.GetRows("weekly")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Contains(t, rows[0][0], "2024-03-06T12:00:00Z")
	assert.Equal(t, "Rank", rows[2][0])
	assert.Equal(t, "Lessons Completed", rows[2][6])
	assert.Equal(t, []string{"1", "7", "EnglishMaster", "25", "2450", "30", "156"}, rows[3])
	assert.Equal(t, "learner-3", rows[4][2])
}

func TestExportXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, leaderboard.ExportXLSX(&buf, leaderboard.AllTime, time.Now(), nil))
	assert.NotZero(t, buf.Len())
}
