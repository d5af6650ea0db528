package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/apperror"
)

const (
	ActionMove                 = "move"
	ActionUpdateScore          = "updateScore"
	ActionUpdateCompletedGrids = "updateCompletedGrids"
	ActionReset                = "reset"
	ActionPlayerConnected      = "playerConnected"
	ActionPlayerDisconnected   = "playerDisconnected"
)

// Action is a client request that mutates one GameState.
// The set of implementations is closed; see GameState.Apply.
type Action interface {
	Kind() string
	Validate() error

	isAction()
}

type MoveAction struct {
	Index    int    `json:"index"`
	Player   string `json:"player"`
	NextGrid int    `json:"nextGrid"`
}

type UpdateScoreAction struct {
	PlayerWon bool   `json:"playerWon"`
	Winner    string `json:"winner"`
}

type UpdateCompletedGridsAction struct {
	CompletedGrids []string `json:"completedGrids"`
}

type ResetAction struct {
	CurrentPlayer string `json:"currentPlayer,omitempty"`
}

type PlayerConnectedAction struct {
	PlayerID string `json:"playerId"`
}

type PlayerDisconnectedAction struct {
	PlayerID string `json:"playerId"`
}

// UnknownAction carries an action name the server does not handle. Applying it is a no-op.
type UnknownAction struct {
	Name string `json:"action"`
}

func (MoveAction) Kind() string                 { return ActionMove }
func (UpdateScoreAction) Kind() string          { return ActionUpdateScore }
func (UpdateCompletedGridsAction) Kind() string { return ActionUpdateCompletedGrids }
func (ResetAction) Kind() string                { return ActionReset }
func (PlayerConnectedAction) Kind() string      { return ActionPlayerConnected }
func (PlayerDisconnectedAction) Kind() string   { return ActionPlayerDisconnected }
func (that UnknownAction) Kind() string         { return that.Name }

func (MoveAction) isAction()                 {}
func (UpdateScoreAction) isAction()          {}
func (UpdateCompletedGridsAction) isAction() {}
func (ResetAction) isAction()                {}
func (PlayerConnectedAction) isAction()      {}
func (PlayerDisconnectedAction) isAction()   {}
func (UnknownAction) isAction()              {}

func (that MoveAction) Validate() error {
	if that.Index < 0 || that.Index >= BoardSize {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, that.Index)
	}

	if that.NextGrid != NoActiveGrid && (that.NextGrid < 0 || that.NextGrid >= GridCount) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidGrid, that.NextGrid)
	}

	return validateMark(that.Player)
}

// Validate accepts any winner; an unknown winner simply scores nothing.
func (UpdateScoreAction) Validate() error {
	return nil
}

func (that UpdateCompletedGridsAction) Validate() error {
	if len(that.CompletedGrids) != GridCount {
		return fmt.Errorf("%w: got %d", apperror.ErrInvalidCompletedGrids, len(that.CompletedGrids))
	}

	return nil
}

func (that ResetAction) Validate() error {
	if that.CurrentPlayer == "" {
		return nil
	}

	return validateMark(that.CurrentPlayer)
}

func (that PlayerConnectedAction) Validate() error {
	return validatePlayerID(that.PlayerID)
}

func (that PlayerDisconnectedAction) Validate() error {
	return validatePlayerID(that.PlayerID)
}

func (UnknownAction) Validate() error {
	return nil
}

func validateMark(mark string) error {
	if mark != PlayerX && mark != PlayerO {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mark)
	}

	return nil
}

func validatePlayerID(id string) error {
	if id == "" {
		return apperror.ErrPlayerIDRequired
	}

	return nil
}

type moveRequest struct {
	Index    *int   `json:"index"`
	Player   string `json:"player"`
	NextGrid *int   `json:"nextGrid"`
}

// DecodeAction parses a `{"action": ..., ...payload}` request body into a validated Action.
func DecodeAction(data []byte) (Action, error) {
	var envelope struct {
		Action string `json:"action"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidRequest, err)
	}

	var (
		action Action
		err    error
	)

	switch envelope.Action {
	case ActionMove:
		action, err = decodeMove(data)
	case ActionUpdateScore:
		action, err = decodeAs[UpdateScoreAction](data)
	case ActionUpdateCompletedGrids:
		action, err = decodeAs[UpdateCompletedGridsAction](data)
	case ActionReset:
		action, err = decodeAs[ResetAction](data)
	case ActionPlayerConnected:
		action, err = decodeAs[PlayerConnectedAction](data)
	case ActionPlayerDisconnected:
		action, err = decodeAs[PlayerDisconnectedAction](data)
	default:
		action = UnknownAction{Name: envelope.Action}
	}

	if err != nil {
		return nil, err
	}

	if err = action.Validate(); err != nil {
		return nil, err
	}

	return action, nil
}

func decodeAs[T Action](data []byte) (Action, error) {
	var action T
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidRequest, err)
	}

	return action, nil
}

// decodeMove maps a missing or null nextGrid to NoActiveGrid.
func decodeMove(data []byte) (Action, error) {
	var req moveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidRequest, err)
	}

	if req.Index == nil {
		return nil, fmt.Errorf("%w: index is required", apperror.ErrInvalidCell)
	}

	action := MoveAction{
		Index:    *req.Index,
		Player:   req.Player,
		NextGrid: NoActiveGrid,
	}

	if req.NextGrid != nil {
		action.NextGrid = *req.NextGrid
	}

	return action, nil
}
