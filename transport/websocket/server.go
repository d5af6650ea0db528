package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

type gameUseCase interface {
	GetGame(ctx context.Context, code string) (*entity.GameState, error)
	Watch(code string) (<-chan *entity.GameState, func())
}

// Server pushes game states to watching clients.
type Server struct {
	logger   *slog.Logger
	game     gameUseCase
	upgrader websocket.Upgrader

	server *http.Server
}

func New(logger *slog.Logger, port string, game gameUseCase) *Server {
	that := &Server{
		logger: logger.With("component", "websocket"),
		game:   game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	that.server = &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return that
}

// Handler returns the websocket routes.
func (that *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws/super/{code}", that.watchGame).Methods(http.MethodGet)

	return router
}

// Start - starts WebSocket server and blocks until Stop is called.
func (that *Server) Start() error {
	that.logger.Info("WebSocket server listening", "addr", that.server.Addr)

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

// watchGame - upgrades the connection and streams the game state until the client leaves.
func (that *Server) watchGame(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	log := that.logger.With("method", "watchGame", "code", code)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	// subscribe before the first read so no update falls in between
	updates, cancel := that.game.Watch(code)
	defer cancel()

	game, err := that.game.GetGame(r.Context(), code)
	if err != nil {
		log.Error("failed to get game", "error", err)
		return
	}

	log.Info("watcher connected")

	closed := make(chan struct{})
	go that.readPump(conn, closed)

	if err = that.writePump(conn, game, updates, closed); err != nil {
		log.Info("watcher disconnected", "error", err)
		return
	}

	log.Info("watcher disconnected")
}

// readPump discards client messages and closes done when the connection goes away.
func (that *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (that *Server) writePump(conn *websocket.Conn, first *entity.GameState, updates <-chan *entity.GameState, closed <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeState(conn, first); err != nil {
		return err
	}

	for {
		select {
		case <-closed:
			return nil
		case game, ok := <-updates:
			if !ok {
				return nil
			}

			if err := writeState(conn, game); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("failed to ping: %w", err)
			}
		}
	}
}

func writeState(conn *websocket.Conn, game *entity.GameState) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := conn.WriteJSON(game); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	return nil
}
