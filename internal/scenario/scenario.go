// Package scenario projects what-if outcomes for price changes and
// promotions. The models are deliberately linear planning heuristics, not
// calibrated econometrics.
package scenario

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultElasticity is the price elasticity assumed when none is given.
const DefaultElasticity = -1.5

// money rounds to cents, half away from zero on the shortest decimal
// representation of v.
func money(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// units truncates a projected volume toward zero.
func units(v float64) int64 {
	return decimal.NewFromFloat(v).Truncate(0).IntPart()
}

// pctLabel renders a fraction as a percentage label, e.g. 0.1 -> "10.0%".
func pctLabel(frac float64) string {
	s := strconv.FormatFloat(frac*100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}
