package forecast

import (
	"oil-forecast/internal/domain"
	"oil-forecast/internal/probability"
)

// Assemble packages the latest qualifying row, its estimate and the signal
// into the output record. The spread is attached only for policies that report it.
func Assemble(row domain.FeatureRow, est probability.Estimate, signal domain.Signal, rules probability.Rules) *domain.ForecastResult {
	result := &domain.ForecastResult{
		DataDate:   row.Date,
		BrentClose: row.Brent,
		WTIClose:   row.WTI,
		ProbUp:     est.ProbUp,
		ProbDown:   est.ProbDown,
		Signal:     signal,
		Policy:     string(rules.Policy),
	}
	if rules.ReportsSpread {
		spread := row.Spread
		result.Spread = &spread
	}
	return result
}
