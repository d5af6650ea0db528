package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type Server struct {
	logger *slog.Logger
	server *http.Server
}

// NewRouter builds the HTTP routes. metrics may be nil.
func NewRouter(logger *slog.Logger, game gameUseCase, metrics http.Handler) http.Handler {
	gameHandler := NewGameHandler(logger, game)

	router := mux.NewRouter()
	router.HandleFunc("/ping", pingHandler).Methods(http.MethodGet)
	router.HandleFunc("/super/{code}", gameHandler.GetGame).Methods(http.MethodGet)
	router.HandleFunc("/super/{code}", gameHandler.PostGame).Methods(http.MethodPost)
	router.HandleFunc("/super", gameHandler.MissingCode).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/super/", gameHandler.MissingCode).Methods(http.MethodGet, http.MethodPost)

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return withMiddleware(logger, router)
}

func New(logger *slog.Logger, port string, handler http.Handler) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Start - serves HTTP until Stop is called.
func (that *Server) Start() error {
	that.logger.Info("HTTP server listening", "addr", that.server.Addr)

	if err := that.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Stop(ctx context.Context) error {
	if err := that.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	return nil
}
