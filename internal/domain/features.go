package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeatureField identifies one optional field of a FeatureRow.
// Fields combine as a bit set to describe what a rule-set requires.
type FeatureField uint8

const (
	FieldBrentReturn FeatureField = 1 << iota
	FieldWTIReturn
	FieldSpreadChange
	FieldMomentum5
	FieldSMA50
	FieldTrendFlag
)

// FeatureRow holds the features derived for one aligned date.
// Nil pointers mark values that are absent for lack of history.
type FeatureRow struct {
	Date  time.Time
	Brent decimal.Decimal
	WTI   decimal.Decimal

	BrentReturn  *decimal.Decimal // brent[t]/brent[t-1] - 1, nil at t=0
	WTIReturn    *decimal.Decimal // wti[t]/wti[t-1] - 1, nil at t=0
	Spread       decimal.Decimal  // brent[t] - wti[t]
	SpreadChange *decimal.Decimal // spread[t] - spread[t-1], nil at t=0
	Momentum5    *decimal.Decimal // brent[t]/brent[t-5] - 1, nil for t<5
	SMA50        *decimal.Decimal // mean(brent[t-49..t]), nil for t<49
	TrendFlag    *bool            // brent[t] > sma_50[t], nil when SMA50 is nil
}

// Has reports whether every field in required is present.
func (r FeatureRow) Has(required FeatureField) bool {
	return r.present()&required == required
}

func (r FeatureRow) present() FeatureField {
	var f FeatureField
	if r.BrentReturn != nil {
		f |= FieldBrentReturn
	}
	if r.WTIReturn != nil {
		f |= FieldWTIReturn
	}
	if r.SpreadChange != nil {
		f |= FieldSpreadChange
	}
	if r.Momentum5 != nil {
		f |= FieldMomentum5
	}
	if r.SMA50 != nil {
		f |= FieldSMA50
	}
	if r.TrendFlag != nil {
		f |= FieldTrendFlag
	}
	return f
}
