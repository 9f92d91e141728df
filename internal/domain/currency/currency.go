// Package currency converts decimal monetary amounts to and from the
// integer minor-unit representation the gateway wire protocol requires.
package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
)

// exponents maps ISO 4217 codes to their minor-unit digit count. Codes not
// listed here default to 2 when present in supported; everything else is
// rejected as unsupported.
var exponents = map[string]int{
	// Zero-decimal currencies
	"JPY": 0, "KRW": 0, "VND": 0, "CLP": 0, "ISK": 0, "IDR": 0,
	// Three-decimal currencies
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

// supported lists two-decimal currencies accepted without an explicit
// exponent entry.
var supported = map[string]struct{}{
	"AUD": {}, "BRL": {}, "CAD": {}, "CHF": {}, "CNY": {}, "CZK": {},
	"DKK": {}, "EUR": {}, "GBP": {}, "HKD": {}, "HUF": {}, "ILS": {},
	"INR": {}, "MXN": {}, "NOK": {}, "NZD": {}, "PLN": {}, "RUB": {},
	"SEK": {}, "SGD": {}, "THB": {}, "TRY": {}, "UAH": {}, "USD": {},
	"ZAR": {},
}

// Exponent returns the minor-unit exponent for a currency code.
func Exponent(code string) (int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if exp, ok := exponents[code]; ok {
		return exp, nil
	}
	if _, ok := supported[code]; ok {
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %q", domainErrors.ErrUnsupportedCurrency, code)
}

// ToMinorUnits converts a decimal amount into the currency's minor units,
// rounding half away from zero. Scaling happens on the amount's shortest
// decimal form rather than by float multiplication: 1.005*100 as float64
// lands just below 100.5 and would round the wrong way. The sign of the
// input is preserved; callers building wire amounts must apply
// AbsMinorUnits, since the gateway rejects signed values.
func ToMinorUnits(amount float64, code string) (int64, error) {
	exp, err := Exponent(code)
	if err != nil {
		return 0, err
	}
	return scaleDecimal(strconv.FormatFloat(amount, 'f', -1, 64), exp)
}

// scaleDecimal shifts a decimal string exp digits left, rounding half away
// from zero on the first dropped digit.
func scaleDecimal(s string, exp int) (int64, error) {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	roundUp := false
	if len(fracPart) > exp {
		roundUp = fracPart[exp] >= '5'
		fracPart = fracPart[:exp]
	}
	for len(fracPart) < exp {
		fracPart += "0"
	}

	value, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", domainErrors.ErrInvalidInput, s)
	}
	if roundUp {
		value++
	}
	if negative {
		value = -value
	}
	return value, nil
}

// FromMinorUnits converts a minor-unit value back to its decimal amount.
func FromMinorUnits(value int64, code string) (float64, error) {
	exp, err := Exponent(code)
	if err != nil {
		return 0, err
	}
	return float64(value) / math.Pow10(exp), nil
}

// AbsMinorUnits returns the non-negative magnitude of a minor-unit value.
// A refund recorded locally as a negative amount still goes out as its
// absolute value.
func AbsMinorUnits(value int64) int64 {
	if value < 0 {
		return -value
	}
	return value
}
