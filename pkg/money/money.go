// Package money converts between decimal amounts on the wire and integer
// cents in storage.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount in the smallest currency unit
type Cents int64

// MaxCents bounds any single amount so that line and bill arithmetic
// stays well inside int64.
const MaxCents Cents = 1_000_000_000_000

var (
	hundred  = decimal.NewFromInt(100)
	maxScale = decimal.NewFromInt(int64(MaxCents))
)

// ToCents converts a decimal amount with at most two fractional digits.
func ToCents(d decimal.Decimal) (Cents, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %s must not be negative", d.String())
	}
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than 2 decimal places", d.String())
	}
	if scaled.GreaterThan(maxScale) {
		return 0, fmt.Errorf("amount %s exceeds the maximum of %s", d.String(), MaxCents)
	}
	return Cents(scaled.IntPart()), nil
}

// ParseCents parses a decimal string such as "100.50".
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return ToCents(d)
}

// Decimal returns the amount as a two-place decimal
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 is used by spreadsheet cells and JSON number output
func (c Cents) Float64() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String formats the amount with exactly two decimals
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Mul multiplies a unit price by a quantity
func (c Cents) Mul(qty int) Cents {
	return c * Cents(qty)
}
