package decision

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// DefaultThreshold is the probability a side needs before a trade is signalled.
var DefaultThreshold = decimal.RequireFromString("0.57")

// ErrInvalidThreshold is returned for thresholds outside [0.5, 1].
var ErrInvalidThreshold = errors.New("probability threshold must be within [0.5, 1]")

var (
	half = decimal.RequireFromString("0.5")
	one  = decimal.NewFromInt(1)
)

// Classifier maps (prob_up, prob_down) to a Signal with a symmetric threshold.
// It holds no state between calls.
type Classifier struct {
	threshold decimal.Decimal
}

// NewClassifier creates a classifier for threshold t.
func NewClassifier(t decimal.Decimal) (*Classifier, error) {
	if t.LessThan(half) || t.GreaterThan(one) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidThreshold, t)
	}
	return &Classifier{threshold: t}, nil
}

// Threshold returns the configured threshold.
func (c *Classifier) Threshold() decimal.Decimal {
	return c.threshold
}

// Classify returns UP if probUp >= T, DOWN if probDown >= T, else NO_TRADE.
func (c *Classifier) Classify(probUp, probDown decimal.Decimal) domain.Signal {
	switch {
	case probUp.GreaterThanOrEqual(c.threshold):
		return domain.SignalUp
	case probDown.GreaterThanOrEqual(c.threshold):
		return domain.SignalDown
	default:
		return domain.SignalNoTrade
	}
}

// Band is the two-sided form of the same policy: UP at or above Upper,
// DOWN at or below Lower.
type Band struct {
	Upper decimal.Decimal
	Lower decimal.Decimal
}

// BandFromThreshold returns the band {T, 1-T}.
func BandFromThreshold(t decimal.Decimal) Band {
	return Band{Upper: t, Lower: one.Sub(t)}
}

// Classify applies the band to probUp alone.
func (b Band) Classify(probUp decimal.Decimal) domain.Signal {
	switch {
	case probUp.GreaterThanOrEqual(b.Upper):
		return domain.SignalUp
	case probUp.LessThanOrEqual(b.Lower):
		return domain.SignalDown
	default:
		return domain.SignalNoTrade
	}
}
