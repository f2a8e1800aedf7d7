package normalization

import (
	"time"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time {
	return baseDate.AddDate(0, 0, i)
}

// quotes builds a daily series starting at baseDate+offset.
func quotes(symbol string, offset int, closes ...float64) []domain.Quote {
	out := make([]domain.Quote, len(closes))
	for i, c := range closes {
		out[i] = domain.Quote{Symbol: symbol, Date: day(offset + i), Close: decimal.NewFromFloat(c)}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
