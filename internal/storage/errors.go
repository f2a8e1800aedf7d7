package storage

import "errors"

// Price history is append-only: a (symbol, date) row is written once.
var (
	// ErrNotFound is returned when a symbol has no stored rows.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a (symbol, date) row already exists.
	ErrDuplicateKey = errors.New("duplicate key: quote already stored for this date")

	// ErrInvalidInput is returned for quotes the store cannot hold.
	ErrInvalidInput = errors.New("invalid input")
)
