package normalization

import "errors"

// Pipeline data errors. All of them are fatal to a forecast run.
var (
	// ErrNoData is returned when one or both raw series are empty.
	ErrNoData = errors.New("no data")

	// ErrNoOverlap is returned when the raw series share no dates.
	ErrNoOverlap = errors.New("no overlapping dates")

	// ErrInsufficientHistory is returned when no row satisfies the warm-up
	// requirements of the active feature set.
	ErrInsufficientHistory = errors.New("insufficient history")
)
