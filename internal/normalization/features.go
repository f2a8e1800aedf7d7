package normalization

import (
	"fmt"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// Lookback windows of the derived features.
const (
	MomentumWindow = 5
	SMAWindow      = 50
)

var one = decimal.NewFromInt(1)

// DeriveFeatures computes one FeatureRow per aligned date, in the same order.
// Every field at index t depends only on rows 0..t.
//
// Formulas:
//   - brent_return = brent[t]/brent[t-1] - 1, absent at t=0
//   - wti_return = wti[t]/wti[t-1] - 1, absent at t=0
//   - spread = brent[t] - wti[t]
//   - spread_change = spread[t] - spread[t-1], absent at t=0
//   - momentum_5 = brent[t]/brent[t-5] - 1, absent for t<5
//   - sma_50 = mean(brent[t-49..t]), absent for t<49
//   - trend_flag = brent[t] > sma_50[t], absent when sma_50 is absent
//
// A ratio whose base close is zero is absent.
func DeriveFeatures(series *domain.AlignedSeries) []domain.FeatureRow {
	if series == nil || series.Len() == 0 {
		return nil
	}

	n := series.Len()
	rows := make([]domain.FeatureRow, n)
	window := decimal.NewFromInt(SMAWindow)
	var rollingSum decimal.Decimal

	for t := 0; t < n; t++ {
		p := series.At(t)
		row := domain.FeatureRow{
			Date:   p.Date,
			Brent:  p.Brent,
			WTI:    p.WTI,
			Spread: p.Spread(),
		}

		if t > 0 {
			prev := series.At(t - 1)
			row.BrentReturn = ratioChange(p.Brent, prev.Brent)
			row.WTIReturn = ratioChange(p.WTI, prev.WTI)
			change := row.Spread.Sub(prev.Spread())
			row.SpreadChange = &change
		}

		if t >= MomentumWindow {
			row.Momentum5 = ratioChange(p.Brent, series.At(t-MomentumWindow).Brent)
		}

		rollingSum = rollingSum.Add(p.Brent)
		if t >= SMAWindow {
			rollingSum = rollingSum.Sub(series.At(t - SMAWindow).Brent)
		}
		if t >= SMAWindow-1 {
			sma := rollingSum.Div(window)
			trend := p.Brent.GreaterThan(sma)
			row.SMA50 = &sma
			row.TrendFlag = &trend
		}

		rows[t] = row
	}

	return rows
}

// Qualifying drops rows missing any required field, preserving order.
// Returns ErrInsufficientHistory when nothing is left.
func Qualifying(rows []domain.FeatureRow, required domain.FeatureField) ([]domain.FeatureRow, error) {
	out := make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Has(required) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d rows carry the required features", ErrInsufficientHistory, len(rows))
	}
	return out, nil
}

// ratioChange returns cur/base - 1, or nil when base is zero.
func ratioChange(cur, base decimal.Decimal) *decimal.Decimal {
	if base.IsZero() {
		return nil
	}
	v := cur.Div(base).Sub(one)
	return &v
}
