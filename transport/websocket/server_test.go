package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/usecase"
)

func newTestServer(t *testing.T) (*usecase.GameManager, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, repository.NewGameRepository(nil), nil, nil)

	httpServer := httptest.NewServer(New(logger, "", manager).Handler())
	t.Cleanup(httpServer.Close)

	return manager, "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readState(t *testing.T, conn *websocket.Conn) *entity.GameState {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var game entity.GameState
	require.NoError(t, conn.ReadJSON(&game))

	return &game
}

func TestServer_WatchGame(t *testing.T) {
	t.Run("Initial state then updates", func(t *testing.T) {
		manager, baseURL := newTestServer(t)

		// Given: a watcher on a fresh game
		conn := dial(t, baseURL+"/ws/super/abc")

		// Then: the current state arrives first
		first := readState(t, conn)
		assert.Equal(t, make([]string, entity.BoardSize), first.Board)
		assert.Equal(t, entity.PlayerX, first.CurrentPlayer)

		// When: a move is applied through the store
		_, err := manager.ApplyAction(context.Background(), "abc", entity.MoveAction{Index: 40, Player: entity.PlayerX, NextGrid: 4})
		require.NoError(t, err)

		// Then: the watcher sees the new state
		next := readState(t, conn)
		assert.Equal(t, entity.PlayerX, next.Board[40])
		assert.Equal(t, entity.PlayerO, next.CurrentPlayer)
		assert.Equal(t, 4, next.ActiveGrid)
	})

	t.Run("Watching is not a connected player", func(t *testing.T) {
		manager, baseURL := newTestServer(t)

		conn := dial(t, baseURL+"/ws/super/abc")
		readState(t, conn)

		game, err := manager.GetGame(context.Background(), "abc")
		require.NoError(t, err)
		assert.Empty(t, game.ConnectedPlayers)
	})

	t.Run("Closing the socket unsubscribes", func(t *testing.T) {
		manager, baseURL := newTestServer(t)

		conn := dial(t, baseURL+"/ws/super/abc")
		readState(t, conn)

		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		_ = conn.Close()

		// applying after the watcher left must not block or fail
		require.Eventually(t, func() bool {
			_, err := manager.ApplyAction(context.Background(), "abc", entity.ResetAction{})
			return err == nil
		}, time.Second, 10*time.Millisecond)
	})
}
