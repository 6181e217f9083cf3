package exercise

import (
	"math"
	"strconv"
	"strings"
)

// parseNumber parses a free-form numeric answer. Comma decimal
// separators and embedded spaces are accepted.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// numbersMatch compares a given value against the expected one with a
// magnitude-scaled tolerance. Small values get an absolute tolerance of
// 0.01, mid-range values 2% relative, large values 1% relative. This
// absorbs rounding in hand-computed decimals without accepting a
// genuinely different result.
func numbersMatch(expected, given float64) bool {
	abs := math.Abs(expected)

	var tolerance float64
	switch {
	case abs < 1:
		tolerance = 0.01
	case abs < 100:
		tolerance = math.Max(0.01, abs*0.02)
	default:
		tolerance = abs * 0.01
	}

	return math.Abs(expected-given) <= tolerance
}
