// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from the record
// and formatting them for display. All arithmetic stays in decimal.Decimal.
package core

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal literal to an exact decimal value.
//
// Only plain literals are accepted: an optional sign, digits and at most one
// dot. Exponents, thousands separators and decimal commas are rejected so that
// a typo in the record cannot silently change the magnitude of a payment.
//
// Examples:
//   ParseAmount("50.00")  -> 50.00, nil
//   ParseAmount("-1.5")   -> -1.5, nil
//   ParseAmount("1e3")    -> error
//   ParseAmount("1,50")   -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if body == "" || body == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	dots := 0
	for _, r := range body {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatMoney renders an amount with the currency's symbol and grouping.
// Unknown currency codes fall back to a plain two decimal string.
func FormatMoney(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// IsKnownCurrency reports whether code is an ISO 4217 code known to go-money.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
