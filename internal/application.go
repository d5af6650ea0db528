package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/metrics"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/repository/storage"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/usecase"
	"github.com/rocketscienceinc/super-tictactoe-backend/transport/rest"
	"github.com/rocketscienceinc/super-tictactoe-backend/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until a signal arrives or a server fails.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameRepo := repository.NewGameRepository(time.Now)
	appMetrics := metrics.New(gameRepo.Count)

	var eventRepo repository.EventRepository
	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisClient, err := storage.NewRedis(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisClient.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		eventRepo = repository.NewEventRepository(redisClient, conf.Redis.Queue)
		log.Info("action event log enabled", "addr", redisAddrString, "queue", conf.Redis.Queue)
	}

	gameManager := usecase.NewGameManager(logger, gameRepo, eventRepo, appMetrics)

	go gameManager.RunReaper(ctx, conf.Reaper.Interval, conf.Reaper.IdleThreshold)

	// run HTTP server
	httpServer := rest.New(logger, conf.HTTPPort, rest.NewRouter(logger, gameManager, appMetrics.Handler()))
	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- httpServer.Start()
	}()

	// run Websocket server
	wsServer := websocket.New(logger, conf.SocketPort, gameManager)
	wsErrCh := make(chan error, 1)
	go func() {
		wsErrCh <- wsServer.Start()
	}()

	var runErr error
	select {
	case err := <-httpErrCh:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		runErr = fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("could not stop HTTP server", "error", err)
	}

	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error("could not stop WebSocket server", "error", err)
	}

	return runErr
}
