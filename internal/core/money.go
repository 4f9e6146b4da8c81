// Package core holds the ledger domain: transactions, money, month buckets
// and the snapshot codec.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxAmountUnits bounds a single amount in currency units.
const MaxAmountUnits = 10_000_000_000_000

// maxIntegerDigits is the number of digits in the integer part of
// MaxAmountUnits-1.
const maxIntegerDigits = 13

var maxCents = decimal.NewFromInt(MaxAmountUnits * 100)

// ParseAmount converts user input to cents.
//
// Both dot (12.34) and a lone comma (12,34) are accepted as the decimal
// separator, and exponent notation is allowed. The value is rounded half
// away from zero to two fractional digits. Negative, non-finite or
// non-numeric input, and amounts of MaxAmountUnits or more, return
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
//	ParseAmount("1e2")    -> 10000
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: amount is negative", ErrInvalidAmount)
	}
	if d.IsZero() {
		return Money{}, nil
	}
	// Rounding rescales the coefficient to the exponent, so the magnitude
	// is checked from digits and exponent alone first.
	intDigits := d.NumDigits() + int(d.Exponent())
	if intDigits > maxIntegerDigits {
		return Money{}, fmt.Errorf("%w: amount exceeds %d", ErrInvalidAmount, int64(MaxAmountUnits))
	}
	if intDigits <= -3 {
		return Money{}, nil
	}
	cents := d.Round(2).Shift(2)
	if !cents.LessThan(maxCents) {
		return Money{}, fmt.Errorf("%w: amount exceeds %d", ErrInvalidAmount, int64(MaxAmountUnits))
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add saturates at the int64 bounds instead of wrapping.
func (m Money) Add(o Money) Money {
	switch {
	case o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && m.Cents < math.MinInt64-o.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// Abs drops the sign; display code decides how to show it.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}
