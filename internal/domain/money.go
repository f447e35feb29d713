package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAmountETB caps parsed amounts well below int64 overflow in minor units.
const MaxAmountETB = 10_000_000

// AmountToCents parses a decimal ETB amount ("50", "120.50") into minor
// units. Returns false for non-numeric, non-positive, or absurdly large input.
func AmountToCents(raw string) (int64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 || value > MaxAmountETB {
		return 0, false
	}

	return int64(value*100 + 0.5), true
}

// FormatETB renders minor units as a decimal ETB string.
func FormatETB(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}
