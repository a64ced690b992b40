package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a locale-formatted number such as "4,500.25". Grouping
// separators are stripped. ok is false when the cell is not a number, in which
// case the value is 0.
func ParsePrice(s string) (v float64, ok bool) {
	return parseDecimal(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// ParsePercent parses a change value with an optional trailing "%", such as
// "-2.3%". ok is false when the cell is not a number, in which case the value is 0.
func ParsePercent(s string) (v float64, ok bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return parseDecimal(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
