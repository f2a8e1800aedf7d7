package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using PostgreSQL.
// Closes are stored as NUMERIC and exchanged as text to keep them exact.
type PriceHistoryStore struct {
	pool *Pool
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(pool *Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// InsertBulk adds multiple quotes atomically. Fails entire batch on any duplicate.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	for _, q := range quotes {
		if err := storage.ValidateQuote(q); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_history (symbol, trade_date, close)
		VALUES ($1, $2, $3::numeric)
	`

	for _, q := range quotes {
		_, err := tx.Exec(ctx, query, q.Symbol, domain.DateOf(q.Date), q.Close.String())
		if err != nil {
			return mapError("insert price history in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySymbol retrieves quotes for a symbol with date >= from, ordered by date ASC.
func (s *PriceHistoryStore) GetBySymbol(ctx context.Context, symbol string, from time.Time) ([]domain.Quote, error) {
	query := `
		SELECT symbol, trade_date, close::text
		FROM price_history
		WHERE symbol = $1 AND trade_date >= $2
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, domain.DateOf(from))
	if err != nil {
		return nil, mapError("get price history by symbol", err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// GetLatestDate returns the most recent stored date for a symbol.
func (s *PriceHistoryStore) GetLatestDate(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT trade_date
		FROM price_history
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var latest time.Time
	if err := s.pool.QueryRow(ctx, query, symbol).Scan(&latest); err != nil {
		return time.Time{}, mapError("get latest date", err)
	}
	return domain.DateOf(latest), nil
}

// scanQuotes scans multiple rows into a slice of Quote.
func scanQuotes(rows pgx.Rows) ([]domain.Quote, error) {
	var quotes []domain.Quote

	for rows.Next() {
		var (
			q         domain.Quote
			closeText string
		)
		if err := rows.Scan(&q.Symbol, &q.Date, &closeText); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}
		v, err := decimal.NewFromString(closeText)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", closeText, err)
		}
		q.Date = domain.DateOf(q.Date)
		q.Close = v
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}

	return quotes, nil
}
