// Package marketdata supplies daily closing prices to the forecast pipeline.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"oil-forecast/internal/domain"
)

// ErrUnknownSymbol is returned when a source has no data for a symbol at all.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Source returns daily closes for symbol with date >= start, ordered by date ASC.
// A source may return fewer rows than expected, or none.
type Source interface {
	FetchDaily(ctx context.Context, symbol string, start time.Time) ([]domain.Quote, error)
}

// StaticSource serves quotes held in memory.
type StaticSource struct {
	quotes map[string][]domain.Quote
}

// NewStaticSource builds a source from per-symbol quotes. Input slices are copied.
func NewStaticSource(quotes map[string][]domain.Quote) *StaticSource {
	s := &StaticSource{quotes: make(map[string][]domain.Quote, len(quotes))}
	for symbol, qs := range quotes {
		s.quotes[symbol] = append([]domain.Quote(nil), qs...)
	}
	return s
}

// FetchDaily implements Source.
func (s *StaticSource) FetchDaily(_ context.Context, symbol string, start time.Time) ([]domain.Quote, error) {
	qs, ok := s.quotes[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	return sinceDate(qs, start), nil
}

// sinceDate keeps quotes dated on or after start and sorts them by date.
func sinceDate(qs []domain.Quote, start time.Time) []domain.Quote {
	start = domain.DateOf(start)
	out := make([]domain.Quote, 0, len(qs))
	for _, q := range qs {
		q.Date = domain.DateOf(q.Date)
		if !q.Date.Before(start) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

var (
	_ Source = (*StaticSource)(nil)
	_ Source = (*YahooClient)(nil)
	_ Source = (*CSVSource)(nil)
	_ Source = (*StoreSource)(nil)
	_ Source = (*CachedSource)(nil)
)
