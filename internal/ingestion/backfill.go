// Package ingestion copies daily closes from a market data source into
// the price history store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/marketdata"
	"oil-forecast/internal/storage"
)

// DefaultBatchSize is the number of quotes per InsertBulk call.
const DefaultBatchSize = 500

// Backfiller performs incremental history ingestion.
type Backfiller struct {
	source    marketdata.Source
	store     storage.PriceHistoryStore
	batchSize int
	now       func() time.Time
	logger    zerolog.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source    marketdata.Source
	Store     storage.PriceHistoryStore
	BatchSize int
	Now       func() time.Time
	Logger    *zerolog.Logger
}

// NewBackfiller creates a new backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Backfiller{
		source:    opts.Source,
		store:     opts.Store,
		batchSize: batchSize,
		now:       now,
		logger:    logger,
	}
}

// SymbolResult contains statistics for one symbol.
type SymbolResult struct {
	Symbol            string
	From              time.Time
	Fetched           int
	Inserted          int
	DuplicatesSkipped int
	UpToDate          bool
}

// BackfillResult contains statistics from a backfill run.
type BackfillResult struct {
	Symbols  []SymbolResult
	Duration time.Duration
}

// Inserted returns the total number of new rows across symbols.
func (r *BackfillResult) Inserted() int {
	n := 0
	for _, s := range r.Symbols {
		n += s.Inserted
	}
	return n
}

// Run backfills each symbol from the day after its latest stored date,
// or from start when nothing is stored yet. Quotes dated today or later are
// never stored.
func (b *Backfiller) Run(ctx context.Context, symbols []string, start time.Time) (*BackfillResult, error) {
	began := time.Now()
	result := &BackfillResult{}

	for _, symbol := range symbols {
		sr, err := b.backfillSymbol(ctx, symbol, domain.DateOf(start))
		if err != nil {
			return result, fmt.Errorf("backfill %s: %w", symbol, err)
		}
		result.Symbols = append(result.Symbols, *sr)
	}

	result.Duration = time.Since(began)
	return result, nil
}

func (b *Backfiller) backfillSymbol(ctx context.Context, symbol string, start time.Time) (*SymbolResult, error) {
	from, err := b.resumeFrom(ctx, symbol, start)
	if err != nil {
		return nil, err
	}
	sr := &SymbolResult{Symbol: symbol, From: from}

	// the current session is still trading; only dates before today are settled
	today := domain.DateOf(b.now())
	if !from.Before(today) {
		sr.UpToDate = true
		b.logger.Info().Str("symbol", symbol).Msg("history up to date")
		return sr, nil
	}

	quotes, err := b.source.FetchDaily(ctx, symbol, from)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	// sources may return the session before from and the live session
	fresh := quotes[:0:0]
	for _, q := range quotes {
		d := domain.DateOf(q.Date)
		if !d.Before(from) && d.Before(today) {
			fresh = append(fresh, q)
		}
	}
	sr.Fetched = len(fresh)

	for i := 0; i < len(fresh); i += b.batchSize {
		end := i + b.batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		inserted, dupes, err := b.storeBatch(ctx, fresh[i:end])
		if err != nil {
			return nil, err
		}
		sr.Inserted += inserted
		sr.DuplicatesSkipped += dupes
	}

	b.logger.Info().
		Str("symbol", symbol).
		Str("from", from.Format(domain.DateLayout)).
		Int("fetched", sr.Fetched).
		Int("inserted", sr.Inserted).
		Int("duplicates", sr.DuplicatesSkipped).
		Msg("symbol backfilled")
	return sr, nil
}

// resumeFrom returns the first date that still needs fetching.
func (b *Backfiller) resumeFrom(ctx context.Context, symbol string, start time.Time) (time.Time, error) {
	latest, err := b.store.GetLatestDate(ctx, symbol)
	if errors.Is(err, storage.ErrNotFound) {
		return start, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest stored date: %w", err)
	}
	next := latest.AddDate(0, 0, 1)
	if next.Before(start) {
		return start, nil
	}
	return next, nil
}

// storeBatch inserts a batch atomically, falling back to row-by-row inserts
// when the batch collides with existing rows.
func (b *Backfiller) storeBatch(ctx context.Context, batch []domain.Quote) (inserted, dupes int, err error) {
	err = b.store.InsertBulk(ctx, batch)
	if err == nil {
		return len(batch), 0, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return 0, 0, fmt.Errorf("insert batch: %w", err)
	}

	for _, q := range batch {
		err := b.store.InsertBulk(ctx, []domain.Quote{q})
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			dupes++
		default:
			return inserted, dupes, fmt.Errorf("insert quote %s: %w", q.Date.Format(domain.DateLayout), err)
		}
	}
	return inserted, dupes, nil
}
