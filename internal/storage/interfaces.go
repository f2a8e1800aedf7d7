package storage

import (
	"context"
	"time"

	"oil-forecast/internal/domain"
)

// PriceHistoryStore provides access to price_history storage.
// Records are append-only and keyed by (symbol, date).
type PriceHistoryStore interface {
	// InsertBulk adds multiple quotes atomically. Fails entire batch on duplicate (symbol, date).
	InsertBulk(ctx context.Context, quotes []domain.Quote) error

	// GetBySymbol retrieves quotes for a symbol with date >= from, ordered by date ASC.
	GetBySymbol(ctx context.Context, symbol string, from time.Time) ([]domain.Quote, error)

	// GetLatestDate returns the most recent stored date for a symbol.
	// Returns ErrNotFound if the symbol has no rows.
	GetLatestDate(ctx context.Context, symbol string) (time.Time, error)
}

// ValidateQuote checks the fields every store requires.
func ValidateQuote(q domain.Quote) error {
	if q.Symbol == "" || q.Date.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
