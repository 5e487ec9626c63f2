// Package normalize turns loosely formatted user and model input into canonical
// query values.
//
// Every function in this package is pure and deterministic: given the same input
// and the same Vocabulary it returns the same output and performs no I/O (except
// LoadVocabulary, which reads a YAML file once at startup).
//
// The rules:
//
//	500k, 1.2M, 2 million          magnitudes (x1,000 / x1,000,000)
//	under X, below X               max = X
//	over X, above X                min = X
//	X-Y, between X and Y           min = smaller, max = larger
//	around X, approximately X      min = 0.9X, max = 1.1X, rounded
//	X                              min = max = X
//	100 sqm, 100 square meters     x10.7639 to square feet
//	$5000/m2                       /10.7639 to price per square foot
//
// Rounding is half-to-even, to whole units or to cents for per-area prices.
// Enumerated values (home type, event, levels) are mapped through synonym tables
// onto closed sets; values that do not map are dropped. State names are mapped to
// lowercase two-letter codes.
package normalize
