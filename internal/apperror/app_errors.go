package apperror

import "errors"

var (
	ErrGameCodeRequired      = errors.New("game code is required")
	ErrInvalidRequest        = errors.New("invalid request body")
	ErrInvalidCell           = errors.New("invalid cell index")
	ErrInvalidGrid           = errors.New("invalid grid index")
	ErrInvalidMark           = errors.New("invalid player mark")
	ErrInvalidCompletedGrids = errors.New("completed grids must have 9 entries")
	ErrPlayerIDRequired      = errors.New("player id is required")
)

// IsValidation reports whether err was caused by a client-supplied payload.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		ErrInvalidCell,
		ErrInvalidGrid,
		ErrInvalidMark,
		ErrInvalidCompletedGrids,
		ErrPlayerIDRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
