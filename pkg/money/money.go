package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider amounts are integer cents. Shop-side totals arrive as decimals,
// so every conversion funnels through here.

// ToCents converts a decimal monetary value to integer cents, rounding
// half-up at the second decimal place.
func ToCents(value decimal.Decimal) int64 {
	return value.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// FromCents converts integer cents back to a decimal value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// ParseCents parses a decimal string ("150.00") into integer cents.
func ParseCents(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return ToCents(d), nil
}

// FormatBRL renders cents in Brazilian currency notation, e.g. 1234567 ->
// "R$ 12.345,67".
func FormatBRL(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), frac)
}
