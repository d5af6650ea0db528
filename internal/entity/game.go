package entity

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

const (
	PlayerX = "X"
	PlayerO = "O"

	GridDraw = "draw"

	EmptyCell = ""
)

const (
	// GridCount is the number of sub-boards, GridSize the number of cells in each.
	GridCount = 9
	GridSize  = 9
	BoardSize = GridCount * GridSize

	// NoActiveGrid means the next move may go to any sub-board.
	NoActiveGrid = -1
)

// GameState is the shared state of one super tic-tac-toe match.
type GameState struct {
	Board            []string
	CurrentPlayer    string
	XScore           int
	OScore           int
	ActiveGrid       int
	CompletedGrids   []string
	LastActivity     time.Time
	ConnectedPlayers map[string]struct{}
}

// NewGameState returns a fresh match: empty board, X to play, no active grid.
func NewGameState(now time.Time) *GameState {
	return &GameState{
		Board:            emptyCells(BoardSize),
		CurrentPlayer:    PlayerX,
		ActiveGrid:       NoActiveGrid,
		CompletedGrids:   emptyCells(GridCount),
		LastActivity:     now,
		ConnectedPlayers: make(map[string]struct{}),
	}
}

func emptyCells(n int) []string {
	return make([]string, n)
}

// GridOf returns the sub-board the given cell belongs to.
func GridOf(cell int) int {
	return cell / GridSize
}

// Opponent returns the mark that plays after mark.
func Opponent(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that *GameState) Touch(now time.Time) {
	that.LastActivity = now
}

// IsIdle reports whether nobody is connected and the game has been untouched for longer than threshold.
func (that *GameState) IsIdle(now time.Time, threshold time.Duration) bool {
	return len(that.ConnectedPlayers) == 0 && now.Sub(that.LastActivity) > threshold
}

func (that *GameState) HasPlayer(playerID string) bool {
	_, ok := that.ConnectedPlayers[playerID]
	return ok
}

// Players returns the connected player ids in sorted order.
func (that *GameState) Players() []string {
	players := make([]string, 0, len(that.ConnectedPlayers))
	for id := range that.ConnectedPlayers {
		players = append(players, id)
	}
	slices.Sort(players)

	return players
}

// Clone returns a deep copy that shares nothing with the receiver.
func (that *GameState) Clone() *GameState {
	clone := *that
	clone.Board = slices.Clone(that.Board)
	clone.CompletedGrids = slices.Clone(that.CompletedGrids)
	clone.ConnectedPlayers = maps.Clone(that.ConnectedPlayers)
	if clone.ConnectedPlayers == nil {
		clone.ConnectedPlayers = make(map[string]struct{})
	}

	return &clone
}

// Apply mutates the state according to action. Unrecognized actions leave it unchanged.
func (that *GameState) Apply(action Action) {
	switch act := action.(type) {
	case MoveAction:
		that.move(act)
	case UpdateScoreAction:
		that.updateScore(act)
	case UpdateCompletedGridsAction:
		that.CompletedGrids = slices.Clone(act.CompletedGrids)
	case ResetAction:
		that.reset(act)
	case PlayerConnectedAction:
		that.ConnectedPlayers[act.PlayerID] = struct{}{}
	case PlayerDisconnectedAction:
		delete(that.ConnectedPlayers, act.PlayerID)
	case UnknownAction, nil:
	}
}

// move trusts the client: no occupancy or turn checks.
func (that *GameState) move(act MoveAction) {
	that.Board[act.Index] = act.Player
	that.CurrentPlayer = Opponent(act.Player)
	that.ActiveGrid = act.NextGrid
}

func (that *GameState) updateScore(act UpdateScoreAction) {
	if !act.PlayerWon {
		return
	}

	switch act.Winner {
	case PlayerX:
		that.XScore++
	case PlayerO:
		that.OScore++
	}
}

// reset clears the board but keeps the match score.
func (that *GameState) reset(act ResetAction) {
	that.Board = emptyCells(BoardSize)
	that.CompletedGrids = emptyCells(GridCount)
	that.ActiveGrid = NoActiveGrid

	that.CurrentPlayer = PlayerX
	if act.CurrentPlayer != "" {
		that.CurrentPlayer = act.CurrentPlayer
	}
}

type gameStateJSON struct {
	Board            []string `json:"board"`
	CurrentPlayer    string   `json:"currentPlayer"`
	XScore           int      `json:"XScore"`
	OScore           int      `json:"OScore"`
	ActiveGrid       *int     `json:"activeGrid"`
	CompletedGrids   []string `json:"completedGrids"`
	LastActivity     int64    `json:"lastActivity"`
	ConnectedPlayers []string `json:"connectedPlayers"`
}

func (that *GameState) MarshalJSON() ([]byte, error) {
	out := gameStateJSON{
		Board:            that.Board,
		CurrentPlayer:    that.CurrentPlayer,
		XScore:           that.XScore,
		OScore:           that.OScore,
		CompletedGrids:   that.CompletedGrids,
		LastActivity:     that.LastActivity.UnixMilli(),
		ConnectedPlayers: that.Players(),
	}

	if that.ActiveGrid != NoActiveGrid {
		grid := that.ActiveGrid
		out.ActiveGrid = &grid
	}

	return json.Marshal(out)
}

func (that *GameState) UnmarshalJSON(data []byte) error {
	var in gameStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*that = GameState{
		Board:            in.Board,
		CurrentPlayer:    in.CurrentPlayer,
		XScore:           in.XScore,
		OScore:           in.OScore,
		ActiveGrid:       NoActiveGrid,
		CompletedGrids:   in.CompletedGrids,
		LastActivity:     time.UnixMilli(in.LastActivity),
		ConnectedPlayers: make(map[string]struct{}, len(in.ConnectedPlayers)),
	}

	if in.ActiveGrid != nil {
		that.ActiveGrid = *in.ActiveGrid
	}

	for _, id := range in.ConnectedPlayers {
		that.ConnectedPlayers[id] = struct{}{}
	}

	return nil
}
