package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/metrics"
)

type gameRepo interface {
	GetOrCreate(ctx context.Context, code string) (*entity.GameState, error)
	Update(ctx context.Context, code string, mutate func(game *entity.GameState)) (*entity.GameState, error)
	DeleteIdle(ctx context.Context, threshold time.Duration) ([]string, error)
	Count() int
}

type eventRepo interface {
	Publish(ctx context.Context, record *entity.ActionRecord) error
}

type GameManager struct {
	logger *slog.Logger

	gameRepo  gameRepo
	eventRepo eventRepo
	metrics   *metrics.Metrics

	// applyMu keeps watcher fan-out in the same order as the store applied the actions.
	applyMu  sync.Mutex
	watchers *watchers
}

// NewGameManager wires the store with the optional event log and metrics; both may be nil.
func NewGameManager(logger *slog.Logger, gameRepo gameRepo, eventRepo eventRepo, m *metrics.Metrics) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo:  gameRepo,
		eventRepo: eventRepo,
		metrics:   m,

		watchers: newWatchers(),
	}
}

// GetGame returns the state for code, creating a fresh game on first access.
func (that *GameManager) GetGame(ctx context.Context, code string) (*entity.GameState, error) {
	game, err := that.gameRepo.GetOrCreate(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ApplyAction applies action to the game identified by code and returns the resulting state.
func (that *GameManager) ApplyAction(ctx context.Context, code string, action entity.Action) (*entity.GameState, error) {
	if code == "" {
		return nil, apperror.ErrGameCodeRequired
	}

	if action == nil {
		action = entity.UnknownAction{}
	}

	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s action: %w", action.Kind(), err)
	}

	game, err := that.apply(ctx, code, action)
	if err != nil {
		return nil, fmt.Errorf("failed to apply action: %w", err)
	}

	_, unknown := action.(entity.UnknownAction)
	that.metrics.ActionApplied(action.Kind(), !unknown)

	that.publish(ctx, code, action, game.LastActivity)

	return game, nil
}

func (that *GameManager) apply(ctx context.Context, code string, action entity.Action) (*entity.GameState, error) {
	that.applyMu.Lock()
	defer that.applyMu.Unlock()

	game, err := that.gameRepo.Update(ctx, code, func(game *entity.GameState) {
		game.Apply(action)
	})
	if err != nil {
		return nil, err
	}

	that.watchers.broadcast(code, game)

	return game, nil
}

// publish writes the action to the event log. Failures are logged and never reach the client.
func (that *GameManager) publish(ctx context.Context, code string, action entity.Action, at time.Time) {
	if that.eventRepo == nil {
		return
	}

	log := that.logger.With("method", "publish", "code", code, "action", action.Kind())

	record, err := entity.NewActionRecord(code, action, at)
	if err != nil {
		log.Error("failed to build action record", "error", err)
		return
	}

	if err = that.eventRepo.Publish(ctx, record); err != nil {
		log.Error("failed to publish action record", "error", err)
	}
}

// Watch subscribes to every state produced by ApplyAction for code.
// Only the latest pending state is kept for a slow reader. Call cancel to unsubscribe.
func (that *GameManager) Watch(code string) (<-chan *entity.GameState, func()) {
	updates := that.watchers.add(code)
	that.metrics.WatcherAdded()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			that.watchers.remove(code, updates)
			that.metrics.WatcherRemoved()
		})
	}

	return updates, cancel
}

func (that *GameManager) ActiveGames() int {
	return that.gameRepo.Count()
}
