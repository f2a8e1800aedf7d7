package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oil-forecast/internal/domain"
)

// DefaultCacheTTL bounds how long a fetched series is reused.
const DefaultCacheTTL = 6 * time.Hour

// Cache stores opaque payloads with a TTL.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource memoizes another Source per (symbol, start, UTC day).
// Cache failures are logged and fall through to the inner source.
type CachedSource struct {
	inner  Source
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedSource wraps inner with cache.
func NewCachedSource(inner Source, cache Cache) *CachedSource {
	return &CachedSource{
		inner:  inner,
		cache:  cache,
		ttl:    DefaultCacheTTL,
		now:    func() time.Time { return time.Now().UTC() },
		logger: zerolog.Nop(),
	}
}

// WithTTL sets the entry lifetime.
func (s *CachedSource) WithTTL(ttl time.Duration) *CachedSource {
	s.ttl = ttl
	return s
}

// WithClock sets the clock used for the day component of the key.
func (s *CachedSource) WithClock(now func() time.Time) *CachedSource {
	s.now = now
	return s
}

// WithLogger sets the logger.
func (s *CachedSource) WithLogger(l zerolog.Logger) *CachedSource {
	s.logger = l
	return s
}

// CacheKey returns the key used for a fetch issued at now.
func CacheKey(symbol string, start, now time.Time) string {
	return fmt.Sprintf("oilfc:quotes:%s:%s:%s",
		symbol, start.Format(domain.DateLayout), now.UTC().Format(domain.DateLayout))
}

// FetchDaily implements Source.
func (s *CachedSource) FetchDaily(ctx context.Context, symbol string, start time.Time) ([]domain.Quote, error) {
	key := CacheKey(symbol, domain.DateOf(start), s.now())

	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
	case ok:
		var quotes []domain.Quote
		if err := json.Unmarshal(raw, &quotes); err == nil {
			s.logger.Debug().Str("symbol", symbol).Int("quotes", len(quotes)).Msg("cache hit")
			return quotes, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	quotes, err := s.inner.FetchDaily(ctx, symbol, start)
	if err != nil {
		return nil, err
	}

	// empty results are not cached so a late publish is picked up
	if len(quotes) > 0 {
		payload, err := json.Marshal(quotes)
		if err != nil {
			return nil, fmt.Errorf("encode quotes: %w", err)
		}
		if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return quotes, nil
}
