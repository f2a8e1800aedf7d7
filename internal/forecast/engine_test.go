package forecast

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oil-forecast/internal/decision"
	"oil-forecast/internal/domain"
	"oil-forecast/internal/normalization"
	"oil-forecast/internal/probability"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(symbol string, offset int, closes ...float64) []domain.Quote {
	out := make([]domain.Quote, len(closes))
	for i, c := range closes {
		out[i] = domain.Quote{Symbol: symbol, Date: start.AddDate(0, 0, offset+i), Close: decimal.NewFromFloat(c)}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEngine_NarrowExampleScenario(t *testing.T) {
	e, err := NewEngine(DefaultSettings())
	require.NoError(t, err)

	result, err := e.Forecast(
		series("BZ=F", 0, 100, 101, 99, 99, 102, 105),
		series("CL=F", 0, 90, 90, 89, 89, 91, 92),
	)
	require.NoError(t, err)

	assert.True(t, result.DataDate.Equal(start.AddDate(0, 0, 5)))
	assert.True(t, result.BrentClose.Equal(dec("105")))
	assert.True(t, result.WTIClose.Equal(dec("92")))
	require.NotNil(t, result.Spread)
	assert.True(t, result.Spread.Equal(dec("13")))
	assert.True(t, result.ProbUp.Equal(dec("0.54")), "prob_up = %s", result.ProbUp)
	assert.True(t, result.ProbDown.Equal(dec("0.46")), "prob_down = %s", result.ProbDown)
	assert.Equal(t, domain.SignalNoTrade, result.Signal)
	assert.Equal(t, "narrow", result.Policy)
}

func TestEngine_LogsClassifierThreshold(t *testing.T) {
	e, err := NewEngine(Settings{Policy: probability.PolicyNarrow, Threshold: dec("0.6")})
	require.NoError(t, err)

	var buf bytes.Buffer
	e.WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	_, err = e.Forecast(
		series("BZ=F", 0, 100, 101, 99, 99, 102, 105),
		series("CL=F", 0, 90, 90, 89, 89, 91, 92),
	)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"signal classified"`)
	assert.Contains(t, out, `"threshold":"0.6"`)
	assert.Contains(t, out, `"signal":"NO_TRADE"`)
}

func TestEngine_NarrowZeroSpreadChangeIsNegative(t *testing.T) {
	e, err := NewEngine(DefaultSettings())
	require.NoError(t, err)

	// both legs up by 1 on the last day: spread unchanged
	result, err := e.Forecast(
		series("BZ=F", 0, 100, 101),
		series("CL=F", 0, 90, 91),
	)
	require.NoError(t, err)
	assert.True(t, result.ProbUp.Equal(dec("0.52")), "prob_up = %s", result.ProbUp)
}

func TestEngine_Wide(t *testing.T) {
	e, err := NewEngine(Settings{Policy: probability.PolicyWide, Threshold: decision.DefaultThreshold})
	require.NoError(t, err)

	brent := make([]float64, 60)
	wti := make([]float64, 60)
	for i := range brent {
		brent[i] = 60 + float64(i)*0.5
		wti[i] = 55 + float64(i)*0.5
	}

	result, err := e.Forecast(series("BZ=F", 0, brent...), series("CL=F", 0, wti...))
	require.NoError(t, err)

	// rising market: momentum positive and price above sma_50
	assert.True(t, result.ProbUp.Equal(dec("0.61")), "prob_up = %s", result.ProbUp)
	assert.Equal(t, domain.SignalUp, result.Signal)
	assert.Nil(t, result.Spread)

	// falling market
	for i := range brent {
		brent[i] = 100 - float64(i)*0.5
	}
	result, err = e.Forecast(series("BZ=F", 0, brent...), series("CL=F", 0, wti...))
	require.NoError(t, err)
	assert.True(t, result.ProbUp.Equal(dec("0.39")))
	assert.Equal(t, domain.SignalDown, result.Signal)
}

func TestEngine_WideInsufficientHistory(t *testing.T) {
	e, err := NewEngine(Settings{Policy: probability.PolicyWide, Threshold: decision.DefaultThreshold})
	require.NoError(t, err)

	brent := make([]float64, 49)
	wti := make([]float64, 49)
	for i := range brent {
		brent[i], wti[i] = 80, 75
	}

	_, err = e.Forecast(series("BZ=F", 0, brent...), series("CL=F", 0, wti...))
	assert.True(t, errors.Is(err, normalization.ErrInsufficientHistory))
}

func TestEngine_NarrowSingleRowInsufficientHistory(t *testing.T) {
	e, err := NewEngine(DefaultSettings())
	require.NoError(t, err)

	_, err = e.Forecast(series("BZ=F", 0, 100), series("CL=F", 0, 90))
	assert.True(t, errors.Is(err, normalization.ErrInsufficientHistory))
}

func TestEngine_DataErrors(t *testing.T) {
	e, err := NewEngine(DefaultSettings())
	require.NoError(t, err)

	_, err = e.Forecast(nil, series("CL=F", 0, 90, 91))
	assert.True(t, errors.Is(err, normalization.ErrNoData))

	_, err = e.Forecast(series("BZ=F", 0, 100, 101), series("CL=F", 30, 90, 91))
	assert.True(t, errors.Is(err, normalization.ErrNoOverlap))
}

func TestEngine_Idempotent(t *testing.T) {
	e, err := NewEngine(DefaultSettings())
	require.NoError(t, err)

	brent := series("BZ=F", 0, 80.12, 80.55, 79.98, 81.4, 81.07)
	wti := series("CL=F", 0, 75.01, 75.3, 75.32, 76.9, 76.2)

	first, err := e.Forecast(brent, wti)
	require.NoError(t, err)
	second, err := e.Forecast(brent, wti)
	require.NoError(t, err)

	assert.Equal(t, first.ProbUp.String(), second.ProbUp.String())
	assert.Equal(t, first.ProbDown.String(), second.ProbDown.String())
	assert.Equal(t, first.Signal, second.Signal)
	assert.True(t, first.DataDate.Equal(second.DataDate))
	assert.Equal(t, first.Spread.String(), second.Spread.String())
}

func TestNewEngine_InvalidSettings(t *testing.T) {
	_, err := NewEngine(Settings{Policy: "greedy", Threshold: decision.DefaultThreshold})
	assert.True(t, errors.Is(err, probability.ErrUnknownPolicy))

	_, err = NewEngine(Settings{Policy: probability.PolicyNarrow, Threshold: dec("0.2")})
	assert.True(t, errors.Is(err, decision.ErrInvalidThreshold))
}

func TestAssemble(t *testing.T) {
	row := domain.FeatureRow{
		Date:   start,
		Brent:  dec("82.1"),
		WTI:    dec("78.4"),
		Spread: dec("3.7"),
	}
	est := probability.Estimate{ProbUp: dec("0.46"), ProbDown: dec("0.54")}

	narrow, err := probability.RulesFor(probability.PolicyNarrow)
	require.NoError(t, err)
	got := Assemble(row, est, domain.SignalNoTrade, narrow)
	require.NotNil(t, got.Spread)
	assert.True(t, got.Spread.Equal(dec("3.7")))
	assert.True(t, got.ProbDown.Equal(dec("0.54")))

	wide, err := probability.RulesFor(probability.PolicyWide)
	require.NoError(t, err)
	got = Assemble(row, est, domain.SignalNoTrade, wide)
	assert.Nil(t, got.Spread)
	assert.Equal(t, "wide", got.Policy)
}
