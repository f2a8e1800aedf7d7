package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used in configs, CSV files and reports.
const DateLayout = "2006-01-02"

// Quote is one daily close for a single symbol, as delivered by a market data source.
type Quote struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"` // 00:00 UTC of the trading day
	Close  decimal.Decimal `json:"close"`
}

// DateOf truncates t to its calendar date at 00:00 UTC.
// The calendar date is taken in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
