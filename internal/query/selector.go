package query

import (
	"fmt"
	"net/url"
	"strconv"

	"divs/internal/core"
	"divs/internal/taxyear"
)

// Selector narrows events to one pivot cell, row or column. Zero fields
// are unconstrained.
type Selector struct {
	Year     int
	TaxYear  int
	Month    string // calendar month name
	TaxMonth string // tax month bucket, including "April (next)"
}

// Drill-down request parameters.
const (
	ParamYear     = "year"
	ParamTaxYear  = "taxYear"
	ParamMonth    = "month"
	ParamTaxMonth = "taxYearMonth"
)

// SelectorFromValues parses the drill-down parameters.
func SelectorFromValues(v url.Values) (Selector, error) {
	var s Selector
	if raw := clean(v.Get(ParamYear)); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return s, &core.ValidationError{Field: ParamYear, Value: raw, Err: err}
		}
		s.Year = y
	}
	if raw := clean(v.Get(ParamTaxYear)); raw != "" {
		y, err := taxyear.ParseLabel(raw)
		if err != nil {
			return s, err
		}
		s.TaxYear = y
	}
	if raw := clean(v.Get(ParamMonth)); raw != "" {
		if !taxyear.IsMonth(taxyear.CalendarMonths, raw) {
			return s, &core.ValidationError{Field: ParamMonth, Value: raw, Err: fmt.Errorf("not a month name")}
		}
		s.Month = raw
	}
	if raw := clean(v.Get(ParamTaxMonth)); raw != "" {
		if !taxyear.IsMonth(taxyear.TaxMonths, raw) {
			return s, &core.ValidationError{Field: ParamTaxMonth, Value: raw, Err: fmt.Errorf("not a tax month")}
		}
		s.TaxMonth = raw
	}
	return s, nil
}

// Encode adds the non-zero selector fields to v.
func (s Selector) Encode(v url.Values) {
	if s.Year != 0 {
		v.Set(ParamYear, strconv.Itoa(s.Year))
	}
	if s.TaxYear != 0 {
		v.Set(ParamTaxYear, strconv.Itoa(s.TaxYear))
	}
	if s.Month != "" {
		v.Set(ParamMonth, s.Month)
	}
	if s.TaxMonth != "" {
		v.Set(ParamTaxMonth, s.TaxMonth)
	}
}

// IsZero reports whether s selects everything.
func (s Selector) IsZero() bool {
	return s == Selector{}
}

// Matches reports whether e falls inside the selection.
func (s Selector) Matches(e core.DividendEvent) bool {
	if s.Year != 0 && e.Date.Year() != s.Year {
		return false
	}
	if s.TaxYear != 0 && taxyear.Of(e.Date) != s.TaxYear {
		return false
	}
	if s.Month != "" && taxyear.MonthName(e.Date) != s.Month {
		return false
	}
	if s.TaxMonth != "" && taxyear.MonthBucketOf(e.Date) != s.TaxMonth {
		return false
	}
	return true
}

// Select returns the events inside the selection, in input order.
func Select(events []core.DividendEvent, s Selector) []core.DividendEvent {
	if s.IsZero() {
		return events
	}
	out := make([]core.DividendEvent, 0, len(events))
	for _, e := range events {
		if s.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
