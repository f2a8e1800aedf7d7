package probability

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// ErrMissingFeature is returned when a row lacks a field the policy requires.
var ErrMissingFeature = errors.New("feature row is missing required fields")

// Contribution records the signed adjustment applied by one term.
type Contribution struct {
	Term  string
	Value decimal.Decimal
}

// Estimate is the outcome of applying a policy to one feature row.
type Estimate struct {
	ProbUp        decimal.Decimal
	ProbDown      decimal.Decimal
	Raw           decimal.Decimal // before clamping
	Contributions []Contribution
}

// Estimator maps a feature row to a bounded probability of an up move.
type Estimator struct {
	rules Rules
}

// NewEstimator creates an estimator for policy p.
func NewEstimator(p Policy) (*Estimator, error) {
	rules, err := RulesFor(p)
	if err != nil {
		return nil, err
	}
	return &Estimator{rules: rules}, nil
}

// Rules returns the rule table in use.
func (e *Estimator) Rules() Rules {
	return e.rules
}

// Estimate starts from BaseProbability, adds +delta or -delta per term and
// clamps to the policy bounds. ProbDown is exactly 1 - ProbUp.
func (e *Estimator) Estimate(row domain.FeatureRow) (Estimate, error) {
	if !row.Has(e.rules.Requires) {
		return Estimate{}, fmt.Errorf("%w: policy %s, date %s", ErrMissingFeature, e.rules.Policy, row.Date.Format(domain.DateLayout))
	}

	prob := BaseProbability
	contributions := make([]Contribution, 0, len(e.rules.Terms))
	for _, term := range e.rules.Terms {
		adj := term.Delta.Neg()
		if term.Indicator(row) {
			adj = term.Delta
		}
		prob = prob.Add(adj)
		contributions = append(contributions, Contribution{Term: term.Name, Value: adj})
	}

	clamped := decimal.Max(e.rules.Floor, decimal.Min(e.rules.Ceiling, prob))
	return Estimate{
		ProbUp:        clamped,
		ProbDown:      decimal.NewFromInt(1).Sub(clamped),
		Raw:           prob,
		Contributions: contributions,
	}, nil
}
