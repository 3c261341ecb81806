package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"

	"github.com/ttglive/ttg-backend/internal/config"
	"github.com/ttglive/ttg-backend/internal/matchmaking"
	"github.com/ttglive/ttg-backend/internal/registry"
	"github.com/ttglive/ttg-backend/internal/repository"
	"github.com/ttglive/ttg-backend/internal/repository/storage"
	"github.com/ttglive/ttg-backend/internal/service"
	"github.com/ttglive/ttg-backend/internal/session"
	"github.com/ttglive/ttg-backend/transport/rest"
	"github.com/ttglive/ttg-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	accountRepo := repository.NewAccountRepository(redisStorage.Connection)
	authService := service.NewAuthService(conf.JWTSecretKey, conf.Game.GuestBalance, accountRepo)

	sessionCfg := session.Config{
		BetWindow:  conf.Game.BetWindow,
		Rounds:     conf.Game.Rounds,
		WinBonus:   conf.Game.WinBonus,
		ChatMaxLen: conf.Game.ChatMaxLen,
	}

	clock := quartz.NewReal()
	supervisor := session.NewSupervisor(logger, clock, sessionCfg, conf.Game.ReconnectGrace, accountRepo)
	connRegistry := registry.New(logger)

	queue := matchmaking.NewQueue(logger, func(a, b *matchmaking.Entry) {
		supervisor.StartMatch(ctx, a, b)
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restHandlers := rest.NewHandlers(logger, accountRepo, connRegistry, supervisor, queue)
		if httpErr := rest.Start(ctx, conf.HTTPPort, restHandlers); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, authService, connRegistry, queue, supervisor)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
