package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-quest/internal/engine"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

type completeLessonRequest struct {
	UserID       int64 `json:"user_id" validate:"required,gt=0"`
	Score        *int  `json:"score" validate:"omitempty,min=0,max=100"`
	StudyMinutes int   `json:"study_minutes" validate:"min=0,max=1440"`
}

type submitAnswerRequest struct {
	Answer string `json:"answer" validate:"max=500"`
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=50"`
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("httpapi.pathID", "%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("httpapi.queryInt", "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// queryUserID parses an optional user_id query parameter; absent means 0.
func queryUserID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("httpapi.queryUserID", "user_id must be a positive integer, got %q", raw)
	}
	return id, nil
}

// catalogETag answers conditional requests for catalog content. It
// reports true when the response has already been written.
func (s *Server) catalogETag(w http.ResponseWriter, r *http.Request) bool {
	etag := fmt.Sprintf("%q", s.engine.Fingerprint())
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	if s.catalogETag(w, r) {
		return
	}
	q := r.URL.Query()
	lessons := s.engine.ListLessons(q.Get("level"), q.Get("type"))
	writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lesson, err := s.engine.GetLesson(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.catalogETag(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleLessonQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.catalogETag(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": s.engine.QuestionsForLesson(id)})
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req completeLessonRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.engine.CompleteLesson(r.Context(), engine.CompleteRequest{
		LessonID:     id,
		UserID:       req.UserID,
		Score:        req.Score,
		StudyMinutes: req.StudyMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitAnswerRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.engine.SubmitAnswer(id, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLevelProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if userID == 0 {
		writeError(w, r, apperr.Invalid("httpapi.levelProgress", "user_id is required"))
		return
	}

	lp, err := s.engine.LevelProgress(r.Context(), userID, chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lp)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.engine.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handlePutUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.engine.RegisterUser(r.Context(), id, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.engine.UserStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", s.defaultLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	period := r.URL.Query().Get("period")
	entries, err := s.engine.Leaderboard(r.Context(), period, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if period == "" {
		period = "all_time"
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "leaderboard": entries})
}

func (s *Server) handleLeaderboardExport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "all_time"
	}
	// Render fully before writing so errors can still change the status.
	var buf bytes.Buffer
	if err := s.engine.ExportLeaderboard(r.Context(), &buf, period); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leaderboard-%s.xlsx"`, period))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	achievements, err := s.engine.Achievements(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": achievements})
}
