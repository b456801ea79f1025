// Package core provides money parsing and handling utilities.
//
// Amounts travel as JSON numbers and are held in pence. Decoding goes
// through shopspring/decimal so no float rounding happens on the way in,
// and display goes through a go-money formatter with the fixed currency
// symbol.
package core

import (
	"bytes"
	"errors"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencySymbol is the single display currency.
const CurrencySymbol = "£"

var (
	ErrMissingAmount = errors.New("missing amount")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Two decimals, no thousands separator, symbol first.
var currencyFormatter = gomoney.NewFormatter(2, ".", "", CurrencySymbol, "$1")

// Money is an amount in minor units (pence).
type Money struct {
	Cents int64
}

// Pence builds Money from minor units.
func Pence(cents int64) Money {
	return Money{Cents: cents}
}

// Pounds builds Money from whole units.
func Pounds(units int64) Money {
	return Money{Cents: units * 100}
}

var maxPence = decimal.NewFromInt(math.MaxInt64)

// FromDecimal rounds a decimal amount to pence, half away from zero.
// Amounts whose pence do not fit in an int64 fail with ErrInvalidAmount.
func FromDecimal(d decimal.Decimal) (Money, error) {
	pence := d.Shift(2).Round(0)
	if pence.Abs().GreaterThan(maxPence) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: pence.IntPart()}, nil
}

// ParseAmount parses user-entered text into Money.
//
// Both dot (12.34) and a lone decimal comma (12,34) are accepted. Signs are
// kept; callers that need a magnitude take Abs.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,34")  -> 1234
//	ParseAmount("12.345") -> 1235 (rounds half away from zero)
//	ParseAmount("-5")     -> -500
//	ParseAmount("1e30")   -> ErrInvalidAmount (out of range)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMissingAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in major units for chart datasets.
// Use Cents for arithmetic.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Neg() Money               { return Money{Cents: -m.Cents} }
func (m Money) Add(n Money) Money        { return Money{Cents: m.Cents + n.Cents} }
func (m Money) Sub(n Money) Money        { return Money{Cents: m.Cents - n.Cents} }
func (m Money) IsZero() bool             { return m.Cents == 0 }
func (m Money) IsNegative() bool         { return m.Cents < 0 }
func (m Money) Equal(n Money) bool       { return m.Cents == n.Cents }
func (m Money) GreaterThan(n Money) bool { return m.Cents > n.Cents }

// String formats the magnitude with the currency symbol, e.g. "£12.34".
// The sign is not part of the text; callers convey it with colour or a
// row class.
func (m Money) String() string {
	return FormatCurrency(m)
}

// FormatCurrency formats the magnitude of m, e.g. FormatCurrency(-1234) is "£12.34".
func FormatCurrency(m Money) string {
	return currencyFormatter.Format(m.Abs().Cents)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
