// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal values so percentage discounts and
// yearly/monthly conversions never go through float64.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a currency amount. The zero value is 0.
type Money struct {
	Value decimal.Decimal
}

// Zero is a zero amount.
var Zero = Money{}

// NewMoney builds an amount from a decimal value.
func NewMoney(v decimal.Decimal) Money {
	return Money{Value: v}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{Value: decimal.New(cents, -2)}
}

// MoneyFromInt builds an amount from whole currency units.
func MoneyFromInt(units int64) Money {
	return Money{Value: decimal.NewFromInt(units)}
}

// MustMoney parses s and panics on error. Intended for fixtures and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a decimal string to an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs are rejected; zero is
// allowed since some plans are free.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Money{Value: d.Round(2)}, nil
}

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(f decimal.Decimal) Money    { return Money{Value: m.Value.Mul(f)} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }
func (m Money) Round() Money                   { return Money{Value: m.Value.Round(2)} }
func (m Money) Percent(p decimal.Decimal) Money { return Money{Value: m.Value.Mul(p).Div(hundred)} }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Cents returns the amount in cents, rounded half away from zero.
func (m Money) Cents() int64 {
	return m.Value.Mul(hundred).Round(0).IntPart()
}

// String formats the amount with two decimals.
func (m Money) String() string {
	return m.Value.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value.StringFixed(2))
}

// UnmarshalJSON accepts both JSON numbers and strings. Signs are preserved so
// stored negative corrections round-trip.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return ErrInvalidAmount
	}
	*m = Money{Value: d}
	return nil
}
