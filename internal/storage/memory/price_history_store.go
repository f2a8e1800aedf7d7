package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[string]domain.Quote // keyed by (symbol, date)
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{
		data: make(map[string]domain.Quote),
	}
}

func quoteKey(symbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s", symbol, date.Format(domain.DateLayout))
}

// InsertBulk adds multiple quotes. Fails entire batch on duplicate.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(quotes))

	// First pass: validate and check duplicates (existing + intra-batch)
	for _, q := range quotes {
		if err := storage.ValidateQuote(q); err != nil {
			return err
		}
		key := quoteKey(q.Symbol, domain.DateOf(q.Date))
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, q := range quotes {
		q.Date = domain.DateOf(q.Date)
		s.data[quoteKey(q.Symbol, q.Date)] = q
	}

	return nil
}

// GetBySymbol retrieves quotes for a symbol with date >= from, ordered by date ASC.
func (s *PriceHistoryStore) GetBySymbol(_ context.Context, symbol string, from time.Time) ([]domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from = domain.DateOf(from)
	var result []domain.Quote
	for _, q := range s.data {
		if q.Symbol == symbol && !q.Date.Before(from) {
			result = append(result, q)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetLatestDate returns the most recent stored date for a symbol.
func (s *PriceHistoryStore) GetLatestDate(_ context.Context, symbol string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, q := range s.data {
		if q.Symbol == symbol && q.Date.After(latest) {
			latest = q.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
