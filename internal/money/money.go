// Package money normalizes free-form currency text into exact decimals.
// Monetary arithmetic never touches binary floating point.
package money

import (
	"strings"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/shopspring/decimal"
)

// Parse converts currency text such as "$1,250,000.50" into a
// non-negative decimal. An empty string parses as zero. Anything that is
// not a currency amount after stripping symbols and separators is a
// validation error, never a NaN.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("invalid currency amount: " + s)
	}
	if d.IsNegative() {
		return decimal.Zero, domain.NewValidationError("currency amount must not be negative: " + s)
	}
	return d, nil
}

// ParseOrZero degrades a missing or malformed amount to zero. This is
// the documented policy for engine inputs: a bad figure never fails the
// whole computation.
func ParseOrZero(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders a whole-dollar amount with thousands separators, e.g.
// "$1,250,000". Used by the activity feed.
func Format(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
