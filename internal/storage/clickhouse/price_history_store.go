package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// InsertBulk adds multiple quotes. Fails entire batch on duplicate (symbol, date).
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	type key struct {
		symbol string
		date   string
	}
	seen := make(map[key]struct{}, len(quotes))
	symbols := make(map[string]time.Time)
	for _, q := range quotes {
		if err := storage.ValidateQuote(q); err != nil {
			return err
		}
		d := domain.DateOf(q.Date)
		k := key{q.Symbol, d.Format(domain.DateLayout)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if from, ok := symbols[q.Symbol]; !ok || d.Before(from) {
			symbols[q.Symbol] = d
		}
	}

	// one range query per symbol instead of one per row
	for symbol, from := range symbols {
		existing, err := s.existingDates(ctx, symbol, from)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, d := range existing {
			if _, dup := seen[key{symbol, d}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (symbol, trade_date, close)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, q := range quotes {
		if err := batch.Append(q.Symbol, domain.DateOf(q.Date), q.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves quotes for a symbol with date >= from, ordered by date ASC.
func (s *PriceHistoryStore) GetBySymbol(ctx context.Context, symbol string, from time.Time) ([]domain.Quote, error) {
	query := `
		SELECT symbol, trade_date, close
		FROM price_history FINAL
		WHERE symbol = ? AND trade_date >= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, clampDate(from))
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// GetLatestDate returns the most recent stored date for a symbol.
func (s *PriceHistoryStore) GetLatestDate(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT count(), max(trade_date)
		FROM price_history
		WHERE symbol = ?
	`

	var (
		count  uint64
		latest time.Time
	)
	if err := s.conn.QueryRow(ctx, query, symbol).Scan(&count, &latest); err != nil {
		return time.Time{}, fmt.Errorf("get latest date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.DateOf(latest), nil
}

// existingDates lists stored dates for a symbol from the given date on.
func (s *PriceHistoryStore) existingDates(ctx context.Context, symbol string, from time.Time) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT trade_date FROM price_history
		WHERE symbol = ? AND trade_date >= ?
	`, symbol, clampDate(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d.Format(domain.DateLayout))
	}
	return dates, rows.Err()
}

// Date columns start at the Unix epoch.
var minDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func clampDate(t time.Time) time.Time {
	d := domain.DateOf(t)
	if d.Before(minDate) {
		return minDate
	}
	return d
}

// scanQuotes scans multiple rows.
func scanQuotes(rows chRows) ([]domain.Quote, error) {
	var quotes []domain.Quote

	for rows.Next() {
		var (
			q          domain.Quote
			closeValue decimal.Decimal
		)
		if err := rows.Scan(&q.Symbol, &q.Date, &closeValue); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}
		q.Date = domain.DateOf(q.Date)
		q.Close = closeValue
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}

	return quotes, nil
}
