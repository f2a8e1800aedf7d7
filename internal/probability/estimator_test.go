package probability

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oil-forecast/internal/domain"
)

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func boolPtr(b bool) *bool {
	return &b
}

func narrowRow(brentRet, wtiRet, spreadChange string) domain.FeatureRow {
	return domain.FeatureRow{
		Date:         time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		BrentReturn:  d(brentRet),
		WTIReturn:    d(wtiRet),
		SpreadChange: d(spreadChange),
	}
}

func wideRow(momentum string, trend bool) domain.FeatureRow {
	return domain.FeatureRow{
		Date:      time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Momentum5: d(momentum),
		SMA50:     d("80"),
		TrendFlag: boolPtr(trend),
	}
}

func TestEstimate_Narrow(t *testing.T) {
	est, err := NewEstimator(PolicyNarrow)
	require.NoError(t, err)

	tests := []struct {
		name string
		row  domain.FeatureRow
		want string
	}{
		{"all positive", narrowRow("0.0294", "0.011", "2"), "0.54"},
		{"all negative", narrowRow("-0.01", "-0.02", "-0.5"), "0.46"},
		{"mixed", narrowRow("0.01", "-0.02", "0.5"), "0.51"},
		{"zero spread change is negative", narrowRow("0.01", "0.01", "0"), "0.52"},
		{"zero returns are negative", narrowRow("0", "0", "1"), "0.48"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.Estimate(tt.row)
			require.NoError(t, err)
			assert.True(t, got.ProbUp.Equal(decimal.RequireFromString(tt.want)), "prob_up = %s, want %s", got.ProbUp, tt.want)
			assert.True(t, got.ProbUp.Add(got.ProbDown).Equal(decimal.NewFromInt(1)))
		})
	}
}

func TestEstimate_NarrowZeroSpreadChangeContribution(t *testing.T) {
	est, err := NewEstimator(PolicyNarrow)
	require.NoError(t, err)

	got, err := est.Estimate(narrowRow("0.01", "0.01", "0"))
	require.NoError(t, err)
	require.Len(t, got.Contributions, 3)
	assert.Equal(t, "spread_change", got.Contributions[2].Term)
	assert.True(t, got.Contributions[2].Value.Equal(decimal.RequireFromString("-0.01")))
}

func TestEstimate_Wide(t *testing.T) {
	est, err := NewEstimator(PolicyWide)
	require.NoError(t, err)

	tests := []struct {
		name     string
		momentum string
		trend    bool
		want     string
	}{
		{"momentum up, above trend", "0.03", true, "0.61"},
		{"momentum up, below trend", "0.03", false, "0.51"},
		{"momentum down, above trend", "-0.03", true, "0.49"},
		{"momentum flat, below trend", "0", false, "0.39"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.Estimate(wideRow(tt.momentum, tt.trend))
			require.NoError(t, err)
			assert.True(t, got.ProbUp.Equal(decimal.RequireFromString(tt.want)), "prob_up = %s, want %s", got.ProbUp, tt.want)
			assert.True(t, got.ProbDown.Equal(decimal.NewFromInt(1).Sub(got.ProbUp)))
		})
	}
}

func TestEstimate_Clamp(t *testing.T) {
	rules, err := RulesFor(PolicyNarrow)
	require.NoError(t, err)
	for i := range rules.Terms {
		rules.Terms[i].Delta = decimal.RequireFromString("0.2")
	}
	est := &Estimator{rules: rules}

	up, err := est.Estimate(narrowRow("1", "1", "1"))
	require.NoError(t, err)
	assert.True(t, up.Raw.Equal(decimal.RequireFromString("1.1")))
	assert.True(t, up.ProbUp.Equal(decimal.RequireFromString("0.55")))
	assert.True(t, up.ProbDown.Equal(decimal.RequireFromString("0.45")))

	down, err := est.Estimate(narrowRow("-1", "-1", "-1"))
	require.NoError(t, err)
	assert.True(t, down.ProbUp.Equal(decimal.RequireFromString("0.45")))
}

func TestEstimate_BoundsHoldForAllSignCombinations(t *testing.T) {
	values := []string{"-0.5", "0", "0.5"}

	narrow, err := NewEstimator(PolicyNarrow)
	require.NoError(t, err)
	lo, hi := decimal.RequireFromString("0.45"), decimal.RequireFromString("0.55")
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				got, err := narrow.Estimate(narrowRow(a, b, c))
				require.NoError(t, err)
				assert.True(t, got.ProbUp.GreaterThanOrEqual(lo) && got.ProbUp.LessThanOrEqual(hi), "narrow prob_up %s out of bounds", got.ProbUp)
			}
		}
	}

	wide, err := NewEstimator(PolicyWide)
	require.NoError(t, err)
	for _, m := range values {
		for _, trend := range []bool{true, false} {
			got, err := wide.Estimate(wideRow(m, trend))
			require.NoError(t, err)
			assert.True(t, got.ProbUp.GreaterThanOrEqual(decimal.Zero) && got.ProbUp.LessThanOrEqual(decimal.NewFromInt(1)))
		}
	}
}

func TestEstimate_MissingFeature(t *testing.T) {
	est, err := NewEstimator(PolicyWide)
	require.NoError(t, err)

	_, err = est.Estimate(narrowRow("0.1", "0.1", "0.1"))
	assert.True(t, errors.Is(err, ErrMissingFeature))
}

func TestEstimate_Deterministic(t *testing.T) {
	est, err := NewEstimator(PolicyNarrow)
	require.NoError(t, err)

	row := narrowRow("0.0123", "-0.004", "0.31")
	first, err := est.Estimate(row)
	require.NoError(t, err)
	second, err := est.Estimate(row)
	require.NoError(t, err)
	assert.Equal(t, first.ProbUp.String(), second.ProbUp.String())
	assert.Equal(t, first.ProbDown.String(), second.ProbDown.String())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Narrow ")
	require.NoError(t, err)
	assert.Equal(t, PolicyNarrow, p)

	p, err = ParsePolicy("wide")
	require.NoError(t, err)
	assert.Equal(t, PolicyWide, p)

	_, err = ParsePolicy("aggressive")
	assert.True(t, errors.Is(err, ErrUnknownPolicy))

	_, err = RulesFor(Policy("aggressive"))
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}
