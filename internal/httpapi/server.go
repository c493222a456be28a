// Package httpapi exposes the engine over HTTP and WebSocket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/p-n-ai/pai-quest/internal/engine"
)

const defaultLeaderboardLimit = 10

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// ServerConfig holds dependencies for the HTTP server.
type ServerConfig struct {
	Engine         *engine.Engine // required
	Hub            *Hub           // optional; enables /ws/leaderboard
	ReadyChecks    map[string]ReadyCheck
	AllowedOrigins []string // defaults to all origins
	DefaultLimit   int      // leaderboard size when limit is absent (default 10)
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine       *engine.Engine
	hub          *Hub
	ready        map[string]ReadyCheck
	origins      []string
	defaultLimit int
	validate     *validator.Validate
}

// NewServer creates a server.
func NewServer(cfg ServerConfig) *Server {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		engine:       cfg.Engine,
		hub:          cfg.Hub,
		ready:        cfg.ReadyChecks,
		origins:      origins,
		defaultLimit: limit,
		validate:     newValidator(),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))

		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", s.handleListLessons)
			r.Get("/{id}", s.handleGetLesson)
			r.Get("/{id}/questions", s.handleLessonQuestions)
			r.Post("/{id}/complete", s.handleCompleteLesson)
		})
		r.Post("/questions/{id}/answer", s.handleSubmitAnswer)
		r.Get("/levels/{level}/progress", s.handleLevelProgress)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Put("/", s.handlePutUser)
			r.Get("/stats", s.handleUserStats)
		})

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/leaderboard/export", s.handleLeaderboardExport)
		r.Get("/achievements", s.handleAchievements)
	})

	if s.hub != nil {
		r.Get("/ws/leaderboard", s.handleLeaderboardFeed)
	}
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.ready))
	status := http.StatusOK
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "ready"}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	writeJSON(w, status, body)
}
