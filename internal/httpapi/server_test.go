package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/engine"
	"github.com/p-n-ai/pai-quest/internal/httpapi"
)

func newTestServer(t *testing.T, cfg httpapi.ServerConfig) http.Handler {
	t.Helper()
	cat, err := catalog.LoadDefault()
	require.NoError(t, err)
	eng, err := engine.New(engine.Config{Catalog: cat, Notifier: hubOrNop(cfg.Hub)})
	require.NoError(t, err)
	cfg.Engine = eng
	return httpapi.NewServer(cfg).Handler()
}

func hubOrNop(h *httpapi.Hub) engine.Notifier {
	if h == nil {
		return engine.NopNotifier{}
	}
	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthz returns 200", "/healthz", http.StatusOK, `{"status":"ok"}`},
		{"readyz without checks returns 200", "/readyz", http.StatusOK, `{"status":"ready"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{
		ReadyChecks: map[string]httpapi.ReadyCheck{
			"database": func(context.Context) error { return nil },
			"cache":    func(context.Context) error { return errors.New("connection refused") },
		},
	})

	rec := do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","cache":"connection refused"}}`, rec.Body.String())
}

func TestLessons(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	type lessonsBody struct {
		Lessons []catalog.Lesson `json:"lessons"`
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []int64
	}{
		{"all", "/api/lessons", []int64{1, 2, 3}},
		{"by level", "/api/lessons?level=A1", []int64{1, 2}},
		{"by level and type", "/api/lessons?level=A2&type=grammar", []int64{3}},
		{"unknown level", "/api/lessons?level=Z9", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[lessonsBody](t, rec)
			ids := []int64{}
			for _, l := range body.Lessons {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.NotEmpty(t, rec.Header().Get("ETag"))
		})
	}
}

func TestLessons_ETag(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	first := do(t, h, http.MethodGet, "/api/lessons", "")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	r := httptest.NewRequest(http.MethodGet, "/api/lessons", nil)
	r.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestGetLesson(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	rec := do(t, h, http.MethodGet, "/api/lessons/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[catalog.Lesson](t, rec)
	assert.Equal(t, "Basic Greetings", l.Title)
	assert.Equal(t, 50, l.ExperienceReward)

	rec = do(t, h, http.MethodGet, "/api/lessons/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Error.Code)

	rec = do(t, h, http.MethodGet, "/api/lessons/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLessonQuestions(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	type questionsBody struct {
		Questions []catalog.Question `json:"questions"`
	}

	rec := do(t, h, http.MethodGet, "/api/lessons/1/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[questionsBody](t, rec).Questions, 2)

	rec = do(t, h, http.MethodGet, "/api/lessons/3/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"questions":[]}`, rec.Body.String())
}

func TestCompleteLesson(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	rec := do(t, h, http.MethodPost, "/api/lessons/1/complete", `{"user_id":7,"score":95,"study_minutes":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[engine.CompletionResult](t, rec)
	assert.Equal(t, 60, got.ExperienceEarned)
	assert.Equal(t, 12, got.CoinsEarned)
	require.NotNil(t, got.Score)
	assert.Equal(t, 95, *got.Score)
	assert.True(t, got.BonusApplied)
	assert.Equal(t, 1, got.Attempts)

	rec = do(t, h, http.MethodPost, "/api/lessons/1/complete", `{"user_id":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[engine.CompletionResult](t, rec)
	assert.Equal(t, 50, got.ExperienceEarned)
	assert.Nil(t, got.Score)
	assert.Equal(t, 2, got.Attempts)
}

func TestCompleteLesson_Errors(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"unknown lesson", "/api/lessons/999/complete", `{"user_id":1}`, http.StatusNotFound, ""},
		{"missing user", "/api/lessons/1/complete", `{"score":50}`, http.StatusBadRequest, "user_id"},
		{"score too high", "/api/lessons/1/complete", `{"user_id":1,"score":101}`, http.StatusBadRequest, "score"},
		{"negative minutes", "/api/lessons/1/complete", `{"user_id":1,"study_minutes":-1}`, http.StatusBadRequest, "study_minutes"},
		{"non-integer score", "/api/lessons/1/complete", `{"user_id":1,"score":"high"}`, http.StatusBadRequest, ""},
		{"unknown field", "/api/lessons/1/complete", `{"user_id":1,"bonus":true}`, http.StatusBadRequest, ""},
		{"malformed json", "/api/lessons/1/complete", `{"user_id":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decode[errorResponse](t, rec).Error.Field)
			}
		})
	}
}

func TestSubmitAnswer(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	type answerBody struct {
		Correct       bool   `json:"correct"`
		CorrectAnswer string `json:"correct_answer"`
		Explanation   string `json:"explanation"`
	}

	rec := do(t, h, http.MethodPost, "/api/questions/1/answer", `{"answer":" hello "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[answerBody](t, rec)
	assert.True(t, got.Correct)
	assert.Equal(t, "Hello", got.CorrectAnswer)

	rec = do(t, h, http.MethodPost, "/api/questions/1/answer", `{"answer":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[answerBody](t, rec).Correct)

	rec = do(t, h, http.MethodPost, "/api/questions/77/answer", `{"answer":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLevelProgress(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	for range 2 {
		rec := do(t, h, http.MethodPost, "/api/lessons/1/complete", `{"user_id":1}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/levels/A1/progress?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"level":"A1","total_lessons":2,"completed_lessons":1,"total_experience":90,"earned_experience":50}`,
		rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/levels/A1/progress", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})

	rec := do(t, h, http.MethodGet, "/api/users/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/users/5", `{"username":"Ana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type userBody struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
		Coins    int    `json:"coins"`
		Level    int    `json:"level"`
	}
	rec = do(t, h, http.MethodGet, "/api/users/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userBody{UserID: 5, Username: "Ana", Coins: 100, Level: 1}, decode[userBody](t, rec))

	rec = do(t, h, http.MethodPut, "/api/users/5", `{"username":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/users/5/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 5, stats["user_id"])
	assert.Len(t, stats["weekly_activity"], 7)
}

func TestLeaderboard(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{DefaultLimit: 2})

	for _, c := range []struct{ path, body string }{
		{"/api/lessons/3/complete", `{"user_id":4,"score":100}`},
		{"/api/lessons/1/complete", `{"user_id":2}`},
		{"/api/lessons/2/complete", `{"user_id":9}`},
	} {
		rec := do(t, h, http.MethodPost, c.path, c.body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	type boardBody struct {
		Period      string `json:"period"`
		Leaderboard []struct {
			Rank       int   `json:"rank"`
			UserID     int64 `json:"user_id"`
			Experience int   `json:"experience"`
		} `json:"leaderboard"`
	}

	rec := do(t, h, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[boardBody](t, rec)
	assert.Equal(t, "all_time", board.Period)
	require.Len(t, board.Leaderboard, 2)
	assert.Equal(t, int64(4), board.Leaderboard[0].UserID)
	assert.Equal(t, 90, board.Leaderboard[0].Experience)
	assert.Equal(t, int64(2), board.Leaderboard[1].UserID)

	rec = do(t, h, http.MethodGet, "/api/leaderboard?period=weekly&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[boardBody](t, rec).Leaderboard, 3)

	rec = do(t, h, http.MethodGet, "/api/leaderboard?limit=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[boardBody](t, rec).Leaderboard)

	for _, bad := range []string{"?period=yearly", "?limit=-1", "?limit=ten"} {
		rec = do(t, h, http.MethodGet, "/api/leaderboard"+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestLeaderboardExport(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})
	rec := do(t, h, http.MethodPost, "/api/lessons/1/complete", `{"user_id":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/leaderboard/export?period=monthly", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leaderboard-monthly.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows("monthly")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "learner-3", rows[3][2])

	rec = do(t, h, http.MethodGet, "/api/leaderboard/export?period=daily", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAchievements(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{})
	for _, body := range []string{`{"user_id":1}`, `{"user_id":2}`} {
		rec := do(t, h, http.MethodPost, "/api/lessons/1/complete", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	type achievementsBody struct {
		Achievements []struct {
			UserID int64  `json:"user_id"`
			Code   string `json:"code"`
			Type   string `json:"achievement_type"`
		} `json:"achievements"`
	}

	rec := do(t, h, http.MethodGet, "/api/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[achievementsBody](t, rec).Achievements, 2)

	rec = do(t, h, http.MethodGet, "/api/achievements?user_id=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[achievementsBody](t, rec).Achievements
	require.Len(t, got, 1)
	assert.Equal(t, "first_lesson", got[0].Code)
	assert.Equal(t, "lesson", got[0].Type)

	rec = do(t, h, http.MethodGet, "/api/achievements?user_id=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, httpapi.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodOptions, "/api/lessons", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/lessons", nil)
	r.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
