package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// FixtureDays is the number of weekdays in the demo series.
const FixtureDays = 90

// FixtureStart is the first date of the demo series.
var FixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FixtureQuotes returns deterministic Brent and WTI closes for demo runs.
// Both cover FixtureDays weekdays; WTI skips one date so alignment has a gap
// to drop.
func FixtureQuotes(symbols Symbols) map[string][]domain.Quote {
	cents := decimal.New(1, -2)
	brent := make([]domain.Quote, 0, FixtureDays)
	wti := make([]domain.Quote, 0, FixtureDays)

	date := FixtureStart
	for i := 0; i < FixtureDays; i++ {
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}

		// slow upward drift with a weekly wobble
		b := decimal.NewFromInt(int64(7500 + 5*i + 42*(i%7))).Mul(cents)
		w := b.Sub(decimal.NewFromInt(int64(410 + 13*(i%5))).Mul(cents))

		brent = append(brent, domain.Quote{Symbol: symbols.Brent, Date: date, Close: b})
		if i != 40 {
			wti = append(wti, domain.Quote{Symbol: symbols.WTI, Date: date, Close: w})
		}
		date = date.AddDate(0, 0, 1)
	}

	return map[string][]domain.Quote{
		symbols.Brent: brent,
		symbols.WTI:   wti,
	}
}
