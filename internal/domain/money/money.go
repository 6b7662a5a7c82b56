package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitDigits maps ISO 4217 codes to their minor-unit exponent where it
// differs from the default of 2.
var minorUnitDigits = map[string]int32{
	"BHD": 3,
	"IDR": 0,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"VND": 0,
}

// Exponent returns the number of minor-unit digits for a currency code.
func Exponent(currency string) int32 {
	if d, ok := minorUnitDigits[currency]; ok {
		return d
	}
	return 2
}

// ValidCurrency reports whether the code looks like an ISO 4217 alpha code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// Decimal converts an amount in minor units to its major-unit decimal value
// (12345 "USD" -> 123.45).
func Decimal(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}

// Format renders an amount for human-readable output, e.g. "123.45 USD".
func Format(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", Decimal(minor, currency).StringFixed(Exponent(currency)), currency)
}
