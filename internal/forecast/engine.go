// Package forecast runs the aligner, feature deriver, probability estimator,
// signal classifier and assembler as one deterministic transform.
package forecast

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oil-forecast/internal/decision"
	"oil-forecast/internal/domain"
	"oil-forecast/internal/normalization"
	"oil-forecast/internal/probability"
)

// Settings is the immutable configuration of an Engine.
type Settings struct {
	Policy    probability.Policy
	Threshold decimal.Decimal
}

// DefaultSettings returns the narrow policy with the 0.57 threshold.
func DefaultSettings() Settings {
	return Settings{
		Policy:    probability.PolicyNarrow,
		Threshold: decision.DefaultThreshold,
	}
}

// Engine is the forecasting core. It performs no I/O.
type Engine struct {
	settings   Settings
	estimator  *probability.Estimator
	classifier *decision.Classifier
	logger     zerolog.Logger
}

// NewEngine validates settings and builds the engine.
func NewEngine(s Settings) (*Engine, error) {
	est, err := probability.NewEstimator(s.Policy)
	if err != nil {
		return nil, err
	}
	cls, err := decision.NewClassifier(s.Threshold)
	if err != nil {
		return nil, err
	}
	return &Engine{
		settings:   s,
		estimator:  est,
		classifier: cls,
		logger:     zerolog.Nop(),
	}, nil
}

// WithLogger sets the logger used for per-stage debug output.
func (e *Engine) WithLogger(l zerolog.Logger) *Engine {
	e.logger = l
	return e
}

// Settings returns the engine settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Rules returns the rule table of the active policy.
func (e *Engine) Rules() probability.Rules {
	return e.estimator.Rules()
}

// Forecast turns two raw daily series into a ForecastResult.
// It fails with normalization.ErrNoData, ErrNoOverlap or ErrInsufficientHistory.
func (e *Engine) Forecast(brent, wti []domain.Quote) (*domain.ForecastResult, error) {
	series, err := normalization.Align(brent, wti)
	if err != nil {
		return nil, err
	}

	rules := e.estimator.Rules()
	rows := normalization.DeriveFeatures(series)
	qualifying, err := normalization.Qualifying(rows, rules.Requires)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", rules.Policy, err)
	}
	latest := qualifying[len(qualifying)-1]

	est, err := e.estimator.Estimate(latest)
	if err != nil {
		return nil, err
	}
	signal := e.classifier.Classify(est.ProbUp, est.ProbDown)

	e.logger.Debug().
		Int("aligned", series.Len()).
		Int("qualifying", len(qualifying)).
		Str("data_date", latest.Date.Format(domain.DateLayout)).
		Msg("features derived")
	for _, c := range est.Contributions {
		e.logger.Debug().Str("term", c.Term).Str("adjustment", c.Value.String()).Msg("probability adjustment")
	}
	e.logger.Debug().
		Str("prob_up", est.ProbUp.String()).
		Str("threshold", e.classifier.Threshold().String()).
		Str("signal", string(signal)).
		Msg("signal classified")

	return Assemble(latest, est, signal, rules), nil
}
