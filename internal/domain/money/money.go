package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidCurrency = errors.New("money: currency must be a 3-letter ISO code")

// Places is the number of fraction digits amounts are rounded to before they are stored or charged.
const Places = 2

// ValidCurrency reports whether code looks like an upper-case ISO 4217 code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Round applies banker's rounding to the stored precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// LineTotal returns unit price times quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
