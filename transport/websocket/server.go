package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ttglive/ttg-backend/internal/matchmaking"
	"github.com/ttglive/ttg-backend/internal/registry"
	"github.com/ttglive/ttg-backend/internal/service"
	"github.com/ttglive/ttg-backend/internal/session"
)

type Server struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	auth       service.AuthService
	registry   *registry.Registry
	queue      *matchmaking.Queue
	supervisor *session.Supervisor
}

func New(
	logger *slog.Logger,
	auth service.AuthService,
	reg *registry.Registry,
	queue *matchmaking.Queue,
	supervisor *session.Supervisor,
) *Server {
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		auth:       auth,
		registry:   reg,
		queue:      queue,
		supervisor: supervisor,
	}
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleUpgrade(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 90 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleUpgrade - upgrades the connection to WebSocket and runs its read loop.
func (that *Server) handleUpgrade(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleUpgrade")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ws, that.logger)
	log.Info("WebSocket connection established", "remote", ws.RemoteAddr().String())

	client := &client{server: that, conn: conn}
	client.readLoop(ctx)
}
