package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/engine"
	"github.com/p-n-ai/pai-quest/internal/httpapi"
	"github.com/p-n-ai/pai-quest/internal/leaderboard"
	"github.com/p-n-ai/pai-quest/internal/platform/cache"
	"github.com/p-n-ai/pai-quest/internal/platform/config"
	"github.com/p-n-ai/pai-quest/internal/platform/database"
	"github.com/p-n-ai/pai-quest/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Backend, "cache", cfg.Cache.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger. Text output is colorized for
// terminals; JSON is for log shippers.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level := parseLevel(lc.Level)
	if lc.Format == "text" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app is the wired service: its HTTP handler and the resources to
// release on shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup loads the catalog, connects the configured backends and builds
// the HTTP handler.
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ready := map[string]httpapi.ReadyCheck{}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	var store progress.Store = progress.NewMemoryStore()
	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.ApplySchema(ctx, progress.Schema...); err != nil {
			a.close()
			return nil, err
		}
		pg, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		store = pg
		ready["database"] = db.HealthCheck
		slog.Info("using postgres progress store")
	}

	var lbCache leaderboard.Cache
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := c.Close(); err != nil {
				slog.Warn("cache close failed", "error", err)
			}
		})
		lbCache = leaderboard.NewRedisCache(c, cfg.Leaderboard.CacheTTL)
		ready["cache"] = c.HealthCheck
		slog.Info("leaderboard cache enabled", "ttl", cfg.Leaderboard.CacheTTL, "key_prefix", c.Prefix)
	}

	hub := httpapi.NewHub()
	eng, err := engine.New(engine.Config{
		Catalog:  cat,
		Store:    store,
		Cache:    lbCache,
		Notifier: hub,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.handler = httpapi.NewServer(httpapi.ServerConfig{
		Engine:         eng,
		Hub:            hub,
		ReadyChecks:    ready,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DefaultLimit:   cfg.Leaderboard.DefaultLimit,
	}).Handler()
	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.LoadDefault()
	}
	return catalog.Load(path)
}
