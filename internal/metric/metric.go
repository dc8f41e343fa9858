// Package metric selects the amount reported for a dividend event.
package metric

import (
	"fmt"

	"github.com/shopspring/decimal"

	"divs/internal/core"
)

// DefaultScale is the number of decimal places per-unit amounts are rounded to.
const DefaultScale int32 = 2

// perUnitFactor expresses per-unit amounts in pence per share.
var perUnitFactor = decimal.NewFromInt(100)

type Kind string

const (
	KindNominal Kind = "nominal"
	KindPerUnit Kind = "perUnit"
)

// Func computes the reportable amount of an event.
type Func func(e core.DividendEvent) decimal.Decimal

// Nominal reports the amount as recorded.
func Nominal(e core.DividendEvent) decimal.Decimal {
	return e.Amount
}

// PerUnit returns a Func computing amount*100/units rounded half away from
// zero to scale places. Units are positive by construction of the record.
func PerUnit(scale int32) Func {
	return func(e core.DividendEvent) decimal.Decimal {
		if e.Units <= 0 {
			return decimal.Zero
		}
		return e.Amount.Mul(perUnitFactor).DivRound(decimal.NewFromInt(e.Units), scale)
	}
}

// Parse maps a metric name to its kind.
func Parse(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindNominal:
		return KindNominal, nil
	case KindPerUnit:
		return KindPerUnit, nil
	}
	return "", &core.ValidationError{Field: "metric", Value: s, Err: fmt.Errorf("must be %s or %s", KindNominal, KindPerUnit)}
}

// For returns the amount function for the kind.
func For(k Kind, scale int32) Func {
	if k == KindPerUnit {
		return PerUnit(scale)
	}
	return Nominal
}
