package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ttglive/ttg-backend/internal/entity"
)

const defaultLeaderboardLimit = 10

const maxLeaderboardLimit = 100

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	LeaderboardHandler(w http.ResponseWriter, r *http.Request)
	StatusHandler(w http.ResponseWriter, _ *http.Request)
}

type accountService interface {
	TopPlayers(ctx context.Context, limit int) ([]*entity.Player, error)
}

type counter interface {
	Count() int
}

type depther interface {
	Depth() int
}

type handlers struct {
	logger      *slog.Logger
	accounts    accountService
	connections counter
	sessions    counter
	queue       depther
}

func NewHandlers(logger *slog.Logger, accounts accountService, connections, sessions counter, queue depther) Handlers {
	return &handlers{
		logger:      logger,
		accounts:    accounts,
		connections: connections,
		sessions:    sessions,
		queue:       queue,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// LeaderboardHandler serves the all-time win ranking.
func (that *handlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "LeaderboardHandler")

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxLeaderboardLimit)
	}

	players, err := that.accounts.TopPlayers(r.Context(), limit)
	if err != nil {
		log.Error("failed to load leaderboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(players); err != nil {
		log.Error("failed to encode leaderboard", "error", err)
	}
}

type statusResponse struct {
	Online   int `json:"online"`
	Queued   int `json:"queued"`
	Sessions int `json:"sessions"`
}

// StatusHandler reports live gauges: bound connections, queued waiters and
// running matches.
func (that *handlers) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	status := statusResponse{
		Online:   that.connections.Count(),
		Queued:   that.queue.Depth(),
		Sessions: that.sessions.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		that.logger.Error("failed to encode status", "method", "StatusHandler", "error", err)
	}
}
