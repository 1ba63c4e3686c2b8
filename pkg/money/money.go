// Package money formats monetary amounts for display. Imported records carry
// a single implicit currency, Colombian pesos, so the surface is small: a
// decimal amount in, a user-facing COP string out.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatCOP renders a decimal amount as Colombian pesos, e.g.
// "$575.000,50". Amounts are rounded half-up to centavos first.
func FormatCOP(amount decimal.Decimal) string {
	minor := amount.Mul(hundred).Round(0).IntPart()
	return money.New(minor, money.COP).Display()
}

// ToMinorUnits converts a decimal amount to centavos, rounding half-up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
