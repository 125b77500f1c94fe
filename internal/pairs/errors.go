package pairs

import (
	"errors"

	"github.com/rickgao/pairs-data/internal/model"
)

// Errors
var (
	// ErrInsufficientData is returned (wrapped in *model.InsufficientDataError)
	// when a series is too short for the requested window.
	ErrInsufficientData = model.ErrInsufficientData

	ErrInvalidWindow        = errors.New("window must be >= 2")
	ErrDegenerateRegression = errors.New("degenerate regression: log(B) has zero variance")
)

// MinRows returns the minimum joined row count required for window.
func MinRows(window int) int {
	return max(30, window+5)
}
