package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func TestGameRepository_GetOrCreate(t *testing.T) {
	t.Run("GetOrCreate_NewGame", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		gameRepo := NewGameRepository(clock.Now)

		// When: an unseen code is requested
		game, err := gameRepo.GetOrCreate(ctx, "abc")

		// Then: a fresh game is created and stored
		require.NoError(t, err)
		assert.Equal(t, entity.NewGameState(clock.Now()), game)
		assert.Equal(t, 1, gameRepo.Count())
	})

	t.Run("GetOrCreate_Existing", func(t *testing.T) {
		ctx := context.Background()
		gameRepo := NewGameRepository(nil)

		// Given: a game with one move
		_, err := gameRepo.Update(ctx, "abc", func(game *entity.GameState) {
			game.Apply(entity.MoveAction{Index: 40, Player: entity.PlayerX, NextGrid: 4})
		})
		require.NoError(t, err)

		// When: the game is read back
		game, err := gameRepo.GetOrCreate(ctx, "abc")

		// Then: the move is there
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, game.Board[40])
		assert.Equal(t, 1, gameRepo.Count())
	})

	t.Run("GetOrCreate_EmptyCode", func(t *testing.T) {
		gameRepo := NewGameRepository(nil)

		_, err := gameRepo.GetOrCreate(context.Background(), "")

		require.ErrorIs(t, err, apperror.ErrGameCodeRequired)
		assert.Zero(t, gameRepo.Count())
	})

	t.Run("GetOrCreate_CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewGameRepository(nil).GetOrCreate(ctx, "abc")

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("GetOrCreate_ReturnsCopy", func(t *testing.T) {
		ctx := context.Background()
		gameRepo := NewGameRepository(nil)

		// Given: a snapshot that the caller scribbles on
		game, err := gameRepo.GetOrCreate(ctx, "abc")
		require.NoError(t, err)
		game.Board[0] = entity.PlayerO
		game.ConnectedPlayers["intruder"] = struct{}{}

		// When: the game is read again
		stored, err := gameRepo.GetOrCreate(ctx, "abc")
		require.NoError(t, err)

		// Then: the stored state is unaffected
		assert.Equal(t, entity.EmptyCell, stored.Board[0])
		assert.Empty(t, stored.ConnectedPlayers)
	})
}

func TestGameRepository_Update(t *testing.T) {
	t.Run("Update_TouchesLastActivity", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		gameRepo := NewGameRepository(clock.Now)

		_, err := gameRepo.GetOrCreate(ctx, "abc")
		require.NoError(t, err)

		// When: an update happens a minute later
		clock.Advance(time.Minute)
		game, err := gameRepo.Update(ctx, "abc", func(*entity.GameState) {})

		// Then: the last activity moves forward
		require.NoError(t, err)
		assert.Equal(t, clock.Now(), game.LastActivity)
	})

	t.Run("Update_CreatesLazily", func(t *testing.T) {
		ctx := context.Background()
		gameRepo := NewGameRepository(nil)

		game, err := gameRepo.Update(ctx, "fresh", func(game *entity.GameState) {
			game.Apply(entity.PlayerConnectedAction{PlayerID: "p1"})
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, game.Players())
		assert.Equal(t, 1, gameRepo.Count())
	})

	t.Run("Update_EmptyCode", func(t *testing.T) {
		called := false
		_, err := NewGameRepository(nil).Update(context.Background(), "", func(*entity.GameState) {
			called = true
		})

		require.ErrorIs(t, err, apperror.ErrGameCodeRequired)
		assert.False(t, called)
	})

	t.Run("Update_ConcurrentWritersLoseNothing", func(t *testing.T) {
		ctx := context.Background()
		gameRepo := NewGameRepository(nil)

		const writers = 50

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := gameRepo.Update(ctx, "abc", func(game *entity.GameState) {
					game.Apply(entity.UpdateScoreAction{PlayerWon: true, Winner: entity.PlayerX})
					game.Apply(entity.PlayerConnectedAction{PlayerID: fmt.Sprintf("p%d", i)})
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		game, err := gameRepo.GetOrCreate(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, writers, game.XScore)
		assert.Len(t, game.ConnectedPlayers, writers)
	})
}

func TestGameRepository_DeleteIdle(t *testing.T) {
	t.Run("DeleteIdle_RemovesAbandonedGames", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		gameRepo := NewGameRepository(clock.Now)

		// Given: an empty game, an occupied game and a game touched later
		_, err := gameRepo.GetOrCreate(ctx, "empty")
		require.NoError(t, err)
		_, err = gameRepo.Update(ctx, "occupied", func(game *entity.GameState) {
			game.Apply(entity.PlayerConnectedAction{PlayerID: "p1"})
		})
		require.NoError(t, err)

		clock.Advance(4 * time.Minute)
		_, err = gameRepo.Update(ctx, "recent", func(*entity.GameState) {})
		require.NoError(t, err)

		// When: idle games are swept after the threshold has passed for the first two
		clock.Advance(2 * time.Minute)
		deleted, err := gameRepo.DeleteIdle(ctx, 5*time.Minute)

		// Then: only the empty, stale game is removed
		require.NoError(t, err)
		assert.Equal(t, []string{"empty"}, deleted)
		assert.Equal(t, 2, gameRepo.Count())
	})

	t.Run("DeleteIdle_EvictedGameStartsFresh", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		gameRepo := NewGameRepository(clock.Now)

		// Given: a played game that everyone left
		_, err := gameRepo.Update(ctx, "abc", func(game *entity.GameState) {
			game.Apply(entity.MoveAction{Index: 40, Player: entity.PlayerX, NextGrid: 4})
			game.Apply(entity.UpdateScoreAction{PlayerWon: true, Winner: entity.PlayerX})
		})
		require.NoError(t, err)

		clock.Advance(6 * time.Minute)
		deleted, err := gameRepo.DeleteIdle(ctx, 5*time.Minute)
		require.NoError(t, err)
		require.Equal(t, []string{"abc"}, deleted)

		// When: the code is requested again
		game, err := gameRepo.GetOrCreate(ctx, "abc")

		// Then: it is indistinguishable from a new game
		require.NoError(t, err)
		assert.Equal(t, entity.NewGameState(clock.Now()), game)
	})

	t.Run("DeleteIdle_NothingToDo", func(t *testing.T) {
		deleted, err := NewGameRepository(nil).DeleteIdle(context.Background(), time.Minute)

		require.NoError(t, err)
		assert.Empty(t, deleted)
	})
}
