package normalize

import (
	"regexp"
	"strings"
)

// SquareFeetPerSquareMeter is the area conversion factor.
const SquareFeetPerSquareMeter = 10.7639

// SquareMetersToSquareFeet converts an area. The result is not rounded.
func SquareMetersToSquareFeet(sqm float64) float64 {
	return sqm * SquareFeetPerSquareMeter
}

// SquareFeetToSquareMeters converts an area. The result is not rounded.
func SquareFeetToSquareMeters(sqft float64) float64 {
	return sqft / SquareFeetPerSquareMeter
}

// PerSquareMeterToPerSquareFoot converts a per-area price, rounded to cents.
func PerSquareMeterToPerSquareFoot(pricePerSqm float64) float64 {
	return Round(pricePerSqm/SquareFeetPerSquareMeter, Cents)
}

// Quantity tells the range parser which unit rules and precision apply.
type Quantity int

const (
	// Count is a plain integer quantity such as bedrooms.
	Count Quantity = iota
	// Money is a whole-dollar amount.
	Money
	// Area is a square-foot area; metric input is converted.
	Area
	// PricePerArea is a price per square foot; metric input is converted.
	PricePerArea
)

// Precision returns the rounding precision of the quantity.
func (q Quantity) Precision() Precision {
	if q == PricePerArea {
		return Cents
	}
	return Whole
}

var (
	metricUnit   = regexp.MustCompile(`(square\s+met(er|re)s?|sq\.?\s*met(er|re)s?|sq\.?\s*m\b|sqm\b|m2\b|m²)`)
	imperialUnit = regexp.MustCompile(`(square\s+f(ee|oo)t|sq\.?\s*f(ee|oo)?t\.?|ft2\b|ft²)`)
	perMarker    = regexp.MustCompile(`(\s+per\s+|\s*/\s*)`)
	noiseWords   = regexp.MustCompile(`\b(dollars?|usd|bedrooms?|beds?|br|bathrooms?|baths?|ba)\b`)
)

// stripUnits removes unit tokens from a phrase and reports whether the phrase
// was expressed in metric units.
func stripUnits(s string) (string, bool) {
	metric := metricUnit.MatchString(s)
	s = metricUnit.ReplaceAllString(s, " ")
	s = imperialUnit.ReplaceAllString(s, " ")
	s = perMarker.ReplaceAllString(s, " ")
	s = noiseWords.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " "), metric
}

// convert applies the metric conversion for q, if any, and rounds.
func convert(x float64, q Quantity, metric bool) float64 {
	if metric {
		switch q {
		case Area:
			x = SquareMetersToSquareFeet(x)
		case PricePerArea:
			x = x / SquareFeetPerSquareMeter
		}
	}
	return Round(x, q.Precision())
}
