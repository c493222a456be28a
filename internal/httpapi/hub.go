package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-quest/internal/engine"
)

const feedWriteTimeout = 5 * time.Second

// Hub fans completion signals out to open leaderboard feeds. It
// implements engine.Notifier.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// CompletionRecorded wakes every subscriber. Signals coalesce, so a slow
// feed sees one refresh for a burst of completions.
func (h *Hub) CompletionRecorded(_ context.Context, _ engine.CompletionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of open feeds.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// feedMessage is one leaderboard push.
type feedMessage struct {
	Period      string `json:"period"`
	Leaderboard any    `json:"leaderboard"`
}

// handleLeaderboardFeed pushes the ranking on connect and again after each
// completion until the client goes away.
func (s *Server) handleLeaderboardFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", s.defaultLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "all_time"
	}
	// Reject bad parameters before upgrading.
	if _, err := s.engine.Leaderboard(r.Context(), period, min(limit, 0)); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns(s.origins)})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx once the client disconnects.
	ctx := conn.CloseRead(r.Context())

	slog.Debug("leaderboard feed opened", "period", period, "limit", limit)
	for {
		if err := s.pushLeaderboard(ctx, conn, period, limit); err != nil {
			slog.Debug("leaderboard feed closed", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-updates:
		}
	}
}

// originPatterns turns CORS origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}

func (s *Server) pushLeaderboard(ctx context.Context, conn *websocket.Conn, period string, limit int) error {
	entries, err := s.engine.Leaderboard(ctx, period, limit)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, feedMessage{Period: period, Leaderboard: entries})
}
