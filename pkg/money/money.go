// Package money handles monetary amounts as fixed-point decimals.
// Amounts are never represented as floats and are never rounded silently:
// a value with more fractional digits than its currency allows is rejected.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotPositive is returned when an amount is zero or negative.
	ErrNotPositive = errors.New("money: amount must be positive")

	// ErrPrecision is returned when an amount carries more fractional
	// digits than the currency's minor unit allows.
	ErrPrecision = errors.New("money: amount exceeds currency precision")

	// ErrUnknownCurrency is returned for an empty or malformed currency code.
	ErrUnknownCurrency = errors.New("money: unknown currency code")
)

// minorUnits maps ISO 4217 currency codes to their minor-unit scale.
// Codes not listed here default to 2 fractional digits.
var minorUnits = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"EUR": 2,
	"GBP": 2,
	"INR": 2,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"USD": 2,
	"VND": 0,
}

// Scale returns the number of fractional digits allowed for the currency.
func Scale(currency string) int32 {
	if s, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return s
	}
	return 2
}

// ValidCurrency reports whether the code looks like an ISO 4217 currency
// code (three letters). The ledger does not maintain a full ISO table;
// unknown three-letter codes are accepted with the default scale.
func ValidCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, r := range currency {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// Normalize validates amount against the currency's minor-unit scale and
// returns it rescaled to exactly that scale. The value is never changed:
// excess precision is an error, not a rounding opportunity.
func Normalize(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	if !ValidCurrency(currency) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}

	scale := Scale(currency)
	truncated := amount.Truncate(scale)
	if !amount.Equal(truncated) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d fractional digits",
			ErrPrecision, amount.String(), scale)
	}

	// Rescale so "2.5" and "2.50" produce identical stored representations.
	return truncated.Round(scale), nil
}

// Parse parses a decimal string and normalizes it for the currency.
func Parse(s, currency string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Normalize(amount, currency)
}

// Format renders the amount with the currency's exact minor-unit scale.
func Format(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(Scale(currency))
}
