package reporting

import (
	"time"

	"oil-forecast/internal/domain"
)

// Report is the human-readable view of one forecast run.
type Report struct {
	GeneratedAt time.Time
	Label       string // policy tag shown in the title, e.g. "A"
	Result      *domain.ForecastResult
}

// NewReport wraps a forecast result. GeneratedAt is normalized to UTC.
func NewReport(result *domain.ForecastResult, label string, generatedAt time.Time) *Report {
	return &Report{
		GeneratedAt: generatedAt.UTC(),
		Label:       label,
		Result:      result,
	}
}
