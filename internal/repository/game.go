package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

// GameRepository keeps game states in process memory. All returned states are copies.
type GameRepository interface {
	GetOrCreate(ctx context.Context, code string) (*entity.GameState, error)
	Update(ctx context.Context, code string, mutate func(game *entity.GameState)) (*entity.GameState, error)
	DeleteIdle(ctx context.Context, threshold time.Duration) ([]string, error)
	Count() int
}

type memGame struct {
	now func() time.Time

	mu    sync.RWMutex
	games map[string]*entity.GameState
}

// NewGameRepository returns an empty store. A nil clock means time.Now.
func NewGameRepository(now func() time.Time) GameRepository {
	if now == nil {
		now = time.Now
	}

	return &memGame{
		now:   now,
		games: make(map[string]*entity.GameState),
	}
}

func (that *memGame) GetOrCreate(ctx context.Context, code string) (*entity.GameState, error) {
	if err := checkRequest(ctx, code); err != nil {
		return nil, err
	}

	that.mu.RLock()
	game, ok := that.games[code]
	if ok {
		snapshot := game.Clone()
		that.mu.RUnlock()

		return snapshot, nil
	}
	that.mu.RUnlock()

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.getOrCreateLocked(code).Clone(), nil
}

// Update runs mutate on the stored state under the write lock, after refreshing its last activity.
func (that *memGame) Update(ctx context.Context, code string, mutate func(game *entity.GameState)) (*entity.GameState, error) {
	if err := checkRequest(ctx, code); err != nil {
		return nil, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	game := that.getOrCreateLocked(code)
	game.Touch(that.now())
	mutate(game)

	return game.Clone(), nil
}

// DeleteIdle removes every game with no connected players whose last activity is older than threshold.
func (that *memGame) DeleteIdle(ctx context.Context, threshold time.Duration) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	now := that.now()

	var deleted []string
	for code, game := range that.games {
		if game.IsIdle(now, threshold) {
			delete(that.games, code)
			deleted = append(deleted, code)
		}
	}

	return deleted, nil
}

func (that *memGame) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.games)
}

func (that *memGame) getOrCreateLocked(code string) *entity.GameState {
	game, ok := that.games[code]
	if !ok {
		game = entity.NewGameState(that.now())
		that.games[code] = game
	}

	return game
}

func checkRequest(ctx context.Context, code string) error {
	if code == "" {
		return apperror.ErrGameCodeRequired
	}

	return ctx.Err()
}
