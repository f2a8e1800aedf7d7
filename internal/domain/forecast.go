package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the discrete trading decision derived from the probability.
type Signal string

const (
	SignalUp      Signal = "UP"
	SignalDown    Signal = "DOWN"
	SignalNoTrade Signal = "NO_TRADE"
)

// ForecastResult is the single output record of a forecast run.
type ForecastResult struct {
	DataDate   time.Time
	BrentClose decimal.Decimal
	WTIClose   decimal.Decimal
	Spread     *decimal.Decimal // nil when the active policy does not report it
	ProbUp     decimal.Decimal
	ProbDown   decimal.Decimal // always 1 - ProbUp
	Signal     Signal
	Policy     string // adjustment policy that produced ProbUp
}
