package marketdata

import (
	"context"
	"fmt"
	"time"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/storage"
)

// StoreSource serves quotes previously ingested into a price history store.
type StoreSource struct {
	store storage.PriceHistoryStore
}

// NewStoreSource wraps store.
func NewStoreSource(store storage.PriceHistoryStore) *StoreSource {
	return &StoreSource{store: store}
}

// FetchDaily implements Source.
func (s *StoreSource) FetchDaily(ctx context.Context, symbol string, start time.Time) ([]domain.Quote, error) {
	quotes, err := s.store.GetBySymbol(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", symbol, err)
	}
	return quotes, nil
}
