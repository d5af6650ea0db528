package rest

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
)

// withMiddleware wraps the router with panic recovery, CORS and request logging.
func withMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	log := logger.With("component", "http")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)

	logged := handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Info("HTTP request",
			"method", params.Request.Method,
			"path", params.URL.Path,
			"status", params.StatusCode,
			"size", params.Size,
			"duration", time.Since(params.TimeStamp),
			"remote", params.Request.RemoteAddr,
		)
	})

	return recovery(cors(logged))
}
