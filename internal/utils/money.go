package utils

import (
	"github.com/shopspring/decimal"
)

// Round2 rounds to the nearest cent, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts a dollar amount to integer cents after rounding to the cent.
func ToCents(d decimal.Decimal) int64 {
	return Round2(d).Shift(2).IntPart()
}

// FromCents converts integer cents to a dollar amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// NullOf wraps a value into a present NullDecimal.
func NullOf(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NullFrom wraps an optional value; nil becomes an absent NullDecimal.
func NullFrom(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return NullOf(*d)
}

// FormatMoney renders an amount for human-facing messages.
func FormatMoney(d decimal.Decimal) string {
	return "$" + Round2(d).StringFixed(2)
}

// FormatNullMoney renders an optional amount, or "n/a" when absent.
func FormatNullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return FormatMoney(d.Decimal)
}
