package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/storage/memory"
)

func q(symbol string, day int, close string) domain.Quote {
	return domain.Quote{
		Symbol: symbol,
		Date:   time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC),
		Close:  decimal.RequireFromString(close),
	}
}

func TestStaticSource(t *testing.T) {
	input := []domain.Quote{q("CL=F", 6, "73.31"), q("CL=F", 2, "72.28"), q("CL=F", 5, "72.78")}
	src := NewStaticSource(map[string][]domain.Quote{"CL=F": input})

	input[0].Close = decimal.Zero // caller mutation does not leak in

	got, err := src.FetchDaily(context.Background(), "CL=F", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Date.Day())
	assert.Equal(t, "73.31", got[1].Close.String())

	_, err = src.FetchDaily(context.Background(), "BZ=F", time.Time{})
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}

func TestStoreSource(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPriceHistoryStore()
	require.NoError(t, store.InsertBulk(ctx, []domain.Quote{
		q("BZ=F", 1, "81.71"),
		q("BZ=F", 2, "77.33"),
		q("CL=F", 2, "72.28"),
	}))

	got, err := NewStoreSource(store).FetchDaily(ctx, "BZ=F", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "77.33", got[0].Close.String())
}
