package decision

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oil-forecast/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultThreshold)
	require.NoError(t, err)
	assert.True(t, c.Threshold().Equal(dec("0.57")))

	tests := []struct {
		probUp string
		want   domain.Signal
	}{
		{"0.545", domain.SignalNoTrade},
		{"0.57", domain.SignalUp},
		{"0.5699", domain.SignalNoTrade},
		{"0.61", domain.SignalUp},
		{"0.43", domain.SignalDown},
		{"0.4301", domain.SignalNoTrade},
		{"0.39", domain.SignalDown},
		{"0.5", domain.SignalNoTrade},
		{"1", domain.SignalUp},
		{"0", domain.SignalDown},
	}

	for _, tt := range tests {
		t.Run(tt.probUp, func(t *testing.T) {
			up := dec(tt.probUp)
			assert.Equal(t, tt.want, c.Classify(up, one.Sub(up)))
		})
	}
}

func TestClassify_OneSidedAndTwoSidedAgree(t *testing.T) {
	// T=0.57 one-sided must match the 0.43/0.57 pair for every probability.
	c, err := NewClassifier(dec("0.57"))
	require.NoError(t, err)
	band := BandFromThreshold(dec("0.57"))
	assert.True(t, band.Lower.Equal(dec("0.43")))

	step := dec("0.0001")
	for p := decimal.Zero; p.LessThanOrEqual(one); p = p.Add(step) {
		require.Equal(t, c.Classify(p, one.Sub(p)), band.Classify(p), "prob_up=%s", p)
	}
}

func TestClassify_Exhaustive(t *testing.T) {
	thresholds := []string{"0.5", "0.55", "0.57", "0.6", "1"}
	step := dec("0.005")

	for _, ts := range thresholds {
		c, err := NewClassifier(dec(ts))
		require.NoError(t, err)
		T := dec(ts)

		for p := decimal.Zero; p.LessThanOrEqual(one); p = p.Add(step) {
			got := c.Classify(p, one.Sub(p))
			switch {
			case p.GreaterThanOrEqual(T):
				assert.Equal(t, domain.SignalUp, got, "T=%s p=%s", ts, p)
			case one.Sub(p).GreaterThanOrEqual(T):
				assert.Equal(t, domain.SignalDown, got, "T=%s p=%s", ts, p)
			default:
				assert.Equal(t, domain.SignalNoTrade, got, "T=%s p=%s", ts, p)
			}
		}
	}
}

func TestNewClassifier_InvalidThreshold(t *testing.T) {
	for _, ts := range []string{"0.43", "0.4999", "1.01", "-0.57"} {
		_, err := NewClassifier(dec(ts))
		assert.True(t, errors.Is(err, ErrInvalidThreshold), "threshold %s", ts)
	}
}
