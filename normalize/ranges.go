package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Tolerance is the relative half-width applied to approximate values.
const Tolerance = 0.10

// Range is an inclusive numeric interval. Either bound may be open.
type Range struct {
	Min    float64
	Max    float64
	HasMin bool
	HasMax bool
}

// Exact returns the range [x, x].
func Exact(x float64) Range {
	return Range{Min: x, Max: x, HasMin: true, HasMax: true}
}

// AtLeast returns the range [x, +inf).
func AtLeast(x float64) Range {
	return Range{Min: x, HasMin: true}
}

// AtMost returns the range (-inf, x].
func AtMost(x float64) Range {
	return Range{Max: x, HasMax: true}
}

// Around returns [x*(1-Tolerance), x*(1+Tolerance)] rounded at precision p.
func Around(x float64, p Precision) Range {
	return Range{
		Min:    Round(x*(1-Tolerance), p),
		Max:    Round(x*(1+Tolerance), p),
		HasMin: true,
		HasMax: true,
	}
}

// Between returns the range spanning a and b in either order.
func Between(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Min: a, Max: b, HasMin: true, HasMax: true}
}

// IsExact reports whether the range pins a single value.
func (r Range) IsExact() bool {
	return r.HasMin && r.HasMax && r.Min == r.Max
}

// Empty reports whether neither bound is set.
func (r Range) Empty() bool {
	return !r.HasMin && !r.HasMax
}

// Contains reports whether x lies in the range.
func (r Range) Contains(x float64) bool {
	return (!r.HasMin || x >= r.Min) && (!r.HasMax || x <= r.Max)
}

func (r Range) String() string {
	switch {
	case r.IsExact():
		return fmt.Sprintf("%g", r.Min)
	case r.HasMin && r.HasMax:
		return fmt.Sprintf("%g..%g", r.Min, r.Max)
	case r.HasMin:
		return fmt.Sprintf(">=%g", r.Min)
	case r.HasMax:
		return fmt.Sprintf("<=%g", r.Max)
	}
	return "any"
}

var (
	betweenPattern = regexp.MustCompile(`^(?:between|from)\s+(.+?)\s+(?:and|to)\s+(.+)$`)
	spanPattern    = regexp.MustCompile(`^(.+?)\s*(?:-|–|—|\bto\b)\s*(.+)$`)
	maxPrefix      = regexp.MustCompile(`^(?:under|below|less than|fewer than|at most|no more than|not more than|up to|max(?:imum)?|<=?)\s*(.+)$`)
	minPrefix      = regexp.MustCompile(`^(?:over|above|more than|greater than|at least|no less than|min(?:imum)?|from|starting at|>=?)\s*(.+)$`)
	aroundPrefix   = regexp.MustCompile(`^(?:around|approximately|approx\.?|about|roughly|circa|ca\.?|near|close to|~)\s*(.+)$`)
	orLessSuffix   = regexp.MustCompile(`^(.+?)\s*(?:or less|or fewer|or below|max)$`)
	orMoreSuffix   = regexp.MustCompile(`^(.+?)\s*(?:or more|or above|plus|\+)$`)
)

// ParseRange reads a numeric phrase for a quantity and returns its range.
//
//	ParseRange("under 500k", Money)            -> <=500000
//	ParseRange("between 400k and 600k", Money) -> 400000..600000
//	ParseRange("around 1M", Money)             -> 900000..1100000
//	ParseRange("100 square meters", Area)      -> 1076
//	ParseRange("3+", Count)                    -> >=3
func ParseRange(phrase string, q Quantity) (Range, error) {
	s, metric := stripUnits(strings.ToLower(strings.TrimSpace(phrase)))
	if s == "" {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, phrase)
	}

	num := func(part string) (float64, error) {
		x, err := ParseMagnitude(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidRange, phrase, err)
		}
		return x, nil
	}

	if m := betweenPattern.FindStringSubmatch(s); m != nil {
		return parseSpan(m[1], m[2], q, metric, num)
	}
	if m := aroundPrefix.FindStringSubmatch(s); m != nil {
		x, err := num(m[1])
		if err != nil {
			return Range{}, err
		}
		if metric {
			x = convertRaw(x, q)
		}
		return Around(x, q.Precision()), nil
	}
	if m := maxPrefix.FindStringSubmatch(s); m != nil {
		x, err := num(m[1])
		if err != nil {
			return Range{}, err
		}
		return AtMost(convert(x, q, metric)), nil
	}
	if m := minPrefix.FindStringSubmatch(s); m != nil {
		x, err := num(m[1])
		if err != nil {
			return Range{}, err
		}
		return AtLeast(convert(x, q, metric)), nil
	}
	if m := orLessSuffix.FindStringSubmatch(s); m != nil {
		x, err := num(m[1])
		if err != nil {
			return Range{}, err
		}
		return AtMost(convert(x, q, metric)), nil
	}
	if m := orMoreSuffix.FindStringSubmatch(s); m != nil {
		x, err := num(m[1])
		if err != nil {
			return Range{}, err
		}
		return AtLeast(convert(x, q, metric)), nil
	}
	if m := spanPattern.FindStringSubmatch(s); m != nil {
		return parseSpan(m[1], m[2], q, metric, num)
	}

	x, err := num(s)
	if err != nil {
		return Range{}, err
	}
	return Exact(convert(x, q, metric)), nil
}

func parseSpan(lo, hi string, q Quantity, metric bool, num func(string) (float64, error)) (Range, error) {
	a, err := num(lo)
	if err != nil {
		return Range{}, err
	}
	b, err := num(hi)
	if err != nil {
		return Range{}, err
	}
	// "400-600k" shares the suffix of the upper bound.
	if a < b && a*1000 <= b && !hasSuffix(lo) && hasSuffix(hi) {
		if x, err := num(lo + suffixOf(hi)); err == nil {
			a = x
		}
	}
	return Between(convert(a, q, metric), convert(b, q, metric)), nil
}

var suffixPattern = regexp.MustCompile(`[0-9.]\s*(k|thousand|m|mm|mil|million|b|bn|billion)$`)

func hasSuffix(s string) bool {
	return suffixPattern.MatchString(strings.TrimSpace(s))
}

func suffixOf(s string) string {
	m := suffixPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[1]
}

// convertRaw applies the metric conversion without rounding.
func convertRaw(x float64, q Quantity) float64 {
	switch q {
	case Area:
		return SquareMetersToSquareFeet(x)
	case PricePerArea:
		return x / SquareFeetPerSquareMeter
	}
	return x
}

// ParseValue reads a bare numeric value for a quantity, honouring magnitude
// suffixes and metric units. Any range wording is rejected.
func ParseValue(phrase string, q Quantity) (float64, error) {
	r, err := ParseRange(phrase, q)
	if err != nil {
		return 0, err
	}
	if !r.IsExact() {
		return 0, fmt.Errorf("%w: %q is not a single value", ErrInvalidRange, phrase)
	}
	return r.Min, nil
}
