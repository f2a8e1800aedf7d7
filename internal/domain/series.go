package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one aligned date carrying both closes.
type PricePoint struct {
	Date  time.Time
	Brent decimal.Decimal
	WTI   decimal.Decimal
}

// Spread returns Brent minus WTI for the point.
func (p PricePoint) Spread() decimal.Decimal {
	return p.Brent.Sub(p.WTI)
}

// AlignedSeries is an immutable, date-ascending sequence of PricePoint
// holding only dates present in both raw series.
type AlignedSeries struct {
	points []PricePoint
}

// NewAlignedSeries wraps points, which must already be unique and ascending by date.
// The slice is copied.
func NewAlignedSeries(points []PricePoint) *AlignedSeries {
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return &AlignedSeries{points: cp}
}

// Len returns the number of aligned dates.
func (s *AlignedSeries) Len() int {
	return len(s.points)
}

// At returns the i-th point.
func (s *AlignedSeries) At(i int) PricePoint {
	return s.points[i]
}

// Last returns the most recent point. The series must be non-empty.
func (s *AlignedSeries) Last() PricePoint {
	return s.points[len(s.points)-1]
}

// Points returns a copy of the underlying points.
func (s *AlignedSeries) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}
