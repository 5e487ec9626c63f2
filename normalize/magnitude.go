package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var magnitudePattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*(k|thousand|m|mm|mil|million|b|bn|billion)?$`)

var multipliers = map[string]float64{
	"":         1,
	"k":        1e3,
	"thousand": 1e3,
	"m":        1e6,
	"mm":       1e6,
	"mil":      1e6,
	"million":  1e6,
	"b":        1e9,
	"bn":       1e9,
	"billion":  1e9,
}

// ParseMagnitude reads a non-negative number with an optional magnitude suffix.
// "500k" is 500000, "1.2M" and "1.2 million" are 1200000. Currency symbols,
// thousands separators and a trailing "dollars" are ignored.
func ParseMagnitude(s string) (float64, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	for _, suffix := range []string{"dollars", "dollar", "usd"} {
		clean = strings.TrimSpace(strings.TrimSuffix(clean, suffix))
	}
	clean = strings.TrimSpace(strings.TrimPrefix(clean, "$"))

	m := magnitudePattern.FindStringSubmatch(clean)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidNumber, s, err)
	}
	return n * multipliers[m[2]], nil
}

// Precision is the number of decimal places a quantity is rounded to.
type Precision int

const (
	Whole Precision = 0
	Cents Precision = 2
)

// Round rounds x half-to-even at precision p.
func Round(x float64, p Precision) float64 {
	if p == Whole {
		return math.RoundToEven(x)
	}
	scale := math.Pow10(int(p))
	return math.RoundToEven(x*scale) / scale
}
