package invoice

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// amountPrefix matches the longest decimal literal at the start of a value
var amountPrefix = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?`)

// maxExponent bounds exponents to the range a float64 total could represent
const maxExponent = 330

// parseAmount reads a monetary value the way a lenient float parser would:
// leading whitespace is skipped, trailing garbage after a valid number is ignored,
// and anything without a leading number (including empty input) is zero.
func parseAmount(text string) decimal.Decimal {
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})

	m := amountPrefix.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	sign, intPart, fracPart, exp := m[1], m[2], m[3], m[4]
	if intPart == "" && fracPart == "" {
		return decimal.Zero
	}
	if intPart == "" {
		intPart = "0"
	}

	literal := sign + intPart
	if fracPart != "" {
		literal += "." + fracPart
	}
	if exp != "" {
		e, err := strconv.Atoi(exp)
		if err != nil || e > maxExponent || e < -maxExponent {
			return decimal.Zero
		}
		literal += "e" + strconv.Itoa(e)
	}

	d, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// formatAmount renders a value with exactly two decimals and no thousands separator
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
