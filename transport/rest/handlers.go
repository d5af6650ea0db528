package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

const (
	maxBodySize = 64 << 10

	msgCodeRequired = "Game code is required"
	msgInternal     = "Internal Server Error"
)

type gameUseCase interface {
	GetGame(ctx context.Context, code string) (*entity.GameState, error)
	ApplyAction(ctx context.Context, code string, action entity.Action) (*entity.GameState, error)
}

type GameHandler interface {
	GetGame(w http.ResponseWriter, r *http.Request)
	PostGame(w http.ResponseWriter, r *http.Request)
	MissingCode(w http.ResponseWriter, r *http.Request)
}

type gameHandler struct {
	logger *slog.Logger
	game   gameUseCase
}

func NewGameHandler(logger *slog.Logger, game gameUseCase) GameHandler {
	return &gameHandler{
		logger: logger.With("component", "rest"),
		game:   game,
	}
}

// GetGame - returns the current state, creating the game on first access.
func (that *gameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	game, err := that.game.GetGame(r.Context(), code)
	if err != nil {
		that.writeError(w, "GetGame", err)
		return
	}

	that.writeGame(w, game)
}

// PostGame - applies the action in the request body and returns the new state.
func (that *gameHandler) PostGame(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		that.writeError(w, "PostGame", apperror.ErrGameCodeRequired)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		that.writeError(w, "PostGame", errors.Join(apperror.ErrInvalidRequest, err))
		return
	}

	action, err := entity.DecodeAction(body)
	if err != nil {
		that.writeError(w, "PostGame", err)
		return
	}

	game, err := that.game.ApplyAction(r.Context(), code, action)
	if err != nil {
		that.writeError(w, "PostGame", err)
		return
	}

	that.writeGame(w, game)
}

// MissingCode - answers requests to /super without a game code.
func (that *gameHandler) MissingCode(w http.ResponseWriter, _ *http.Request) {
	that.writeError(w, "MissingCode", apperror.ErrGameCodeRequired)
}

func (that *gameHandler) writeGame(w http.ResponseWriter, game *entity.GameState) {
	body, err := json.Marshal(game)
	if err != nil {
		that.writeError(w, "writeGame", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *gameHandler) writeError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrGameCodeRequired):
		http.Error(w, msgCodeRequired, http.StatusBadRequest)
	case errors.Is(err, apperror.ErrInvalidRequest):
		http.Error(w, apperror.ErrInvalidRequest.Error(), http.StatusBadRequest)
	case apperror.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
