package probability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// Policy selects one of the supported adjustment rule-sets.
type Policy string

const (
	// PolicyNarrow nudges on daily returns and spread change, clamped to [0.45, 0.55].
	PolicyNarrow Policy = "narrow"
	// PolicyWide nudges on 5-day momentum and the 50-day trend, clamped to [0, 1].
	PolicyWide Policy = "wide"
)

// ErrUnknownPolicy is returned for a policy name outside the supported set.
var ErrUnknownPolicy = errors.New("unknown adjustment policy")

// BaseProbability is the starting point before any adjustment.
var BaseProbability = decimal.RequireFromString("0.50")

// Term is one additive adjustment: +Delta when Indicator holds, -Delta otherwise.
type Term struct {
	Name      string
	Delta     decimal.Decimal
	Indicator func(domain.FeatureRow) bool
}

// Rules is the complete rule table of a policy.
type Rules struct {
	Policy        Policy
	Label         string // short tag printed in the report title
	Terms         []Term
	Floor         decimal.Decimal
	Ceiling       decimal.Decimal
	Requires      domain.FeatureField
	ReportsSpread bool
}

// ParsePolicy accepts a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PolicyNarrow, PolicyWide:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// RulesFor returns the rule table for p.
func RulesFor(p Policy) (Rules, error) {
	switch p {
	case PolicyNarrow:
		return Rules{
			Policy: PolicyNarrow,
			Label:  "A",
			Terms: []Term{
				{Name: "brent_return", Delta: decimal.RequireFromString("0.015"), Indicator: positive(func(r domain.FeatureRow) *decimal.Decimal { return r.BrentReturn })},
				{Name: "wti_return", Delta: decimal.RequireFromString("0.015"), Indicator: positive(func(r domain.FeatureRow) *decimal.Decimal { return r.WTIReturn })},
				{Name: "spread_change", Delta: decimal.RequireFromString("0.01"), Indicator: positive(func(r domain.FeatureRow) *decimal.Decimal { return r.SpreadChange })},
			},
			Floor:         decimal.RequireFromString("0.45"),
			Ceiling:       decimal.RequireFromString("0.55"),
			Requires:      domain.FieldBrentReturn | domain.FieldWTIReturn | domain.FieldSpreadChange,
			ReportsSpread: true,
		}, nil
	case PolicyWide:
		return Rules{
			Policy: PolicyWide,
			Label:  "B",
			Terms: []Term{
				{Name: "momentum_5", Delta: decimal.RequireFromString("0.06"), Indicator: positive(func(r domain.FeatureRow) *decimal.Decimal { return r.Momentum5 })},
				{Name: "trend_flag", Delta: decimal.RequireFromString("0.05"), Indicator: func(r domain.FeatureRow) bool { return r.TrendFlag != nil && *r.TrendFlag }},
			},
			Floor:    decimal.Zero,
			Ceiling:  decimal.NewFromInt(1),
			Requires: domain.FieldMomentum5 | domain.FieldSMA50 | domain.FieldTrendFlag,
		}, nil
	default:
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, string(p))
	}
}

// positive builds an indicator that holds only for strictly positive values.
// Zero and absent values count as negative evidence.
func positive(field func(domain.FeatureRow) *decimal.Decimal) func(domain.FeatureRow) bool {
	return func(r domain.FeatureRow) bool {
		v := field(r)
		return v != nil && v.IsPositive()
	}
}
