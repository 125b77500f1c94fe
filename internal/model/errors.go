package model

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownTimeframe = errors.New("unknown timeframe")
	ErrInvalidRule      = errors.New("invalid alert rule")
)

// InsufficientDataError reports how many samples were available versus required.
// It matches ErrInsufficientData with errors.Is.
type InsufficientDataError struct {
	Op   string
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d, need %d", e.Op, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
