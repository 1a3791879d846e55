// Package money converts integer cent amounts for display and for payment
// providers.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// maxAmount bounds parsed amounts, in currency units.
var maxAmount = decimal.New(1, 9)

// Decimal returns cents as a currency unit amount.
func Decimal(cents int) decimal.Decimal {
	return decimal.New(int64(cents), -2)
}

// String formats cents with two decimals, as payment APIs expect.
func String(cents int) string {
	return Decimal(cents).StringFixed(2)
}

// Format renders a USD price for humans.
func Format(cents int) string {
	if cents == 0 {
		return "Free"
	}
	return "$" + String(cents)
}

// Cents parses a decimal string such as "49.99" into cents.
func Cents(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s out of range", s)
	}
	return int(d.Shift(2).Round(0).IntPart()), nil
}
