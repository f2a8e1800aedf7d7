package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oil-forecast/internal/domain"
)

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("connection refused")
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

type countingSource struct {
	calls  int
	quotes []domain.Quote
	err    error
}

func (s *countingSource) FetchDaily(_ context.Context, _ string, _ time.Time) ([]domain.Quote, error) {
	s.calls++
	return s.quotes, s.err
}

func TestCachedSource_HitAfterMiss(t *testing.T) {
	inner := &countingSource{quotes: []domain.Quote{q("BZ=F", 1, "81.71"), q("BZ=F", 2, "77.33")}}
	cache := newMapCache()
	now := time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC)
	src := NewCachedSource(inner, cache).WithTTL(time.Hour).WithClock(func() time.Time { return now })

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := src.FetchDaily(context.Background(), "BZ=F", start)
	require.NoError(t, err)
	second, err := src.FetchDaily(context.Background(), "BZ=F", start)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, second, 2)
	assert.True(t, first[1].Close.Equal(second[1].Close))
	assert.True(t, first[1].Date.Equal(second[1].Date))

	key := CacheKey("BZ=F", start, now)
	assert.Equal(t, "oilfc:quotes:BZ=F:2024-01-01:2024-02-03", key)
	assert.Equal(t, time.Hour, cache.ttls[key])
}

func TestCachedSource_NewDayRefetches(t *testing.T) {
	inner := &countingSource{quotes: []domain.Quote{q("BZ=F", 1, "81.71")}}
	now := time.Date(2024, 2, 3, 23, 0, 0, 0, time.UTC)
	src := NewCachedSource(inner, newMapCache()).WithClock(func() time.Time { return now })

	_, err := src.FetchDaily(context.Background(), "BZ=F", time.Time{})
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = src.FetchDaily(context.Background(), "BZ=F", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_CacheFailureFallsThrough(t *testing.T) {
	inner := &countingSource{quotes: []domain.Quote{q("CL=F", 1, "73.82")}}
	cache := newMapCache()
	cache.failGet = true

	got, err := NewCachedSource(inner, cache).FetchDaily(context.Background(), "CL=F", time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedSource_DoesNotCacheEmptyOrErrors(t *testing.T) {
	inner := &countingSource{}
	cache := newMapCache()
	src := NewCachedSource(inner, cache)

	_, err := src.FetchDaily(context.Background(), "CL=F", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, cache.data)

	inner.err = errors.New("upstream down")
	_, err = src.FetchDaily(context.Background(), "CL=F", time.Time{})
	assert.Error(t, err)
	assert.Empty(t, cache.data)
}
