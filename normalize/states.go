package normalize

import "slices"

var stateCodes = map[string]string{
	"alabama":              "al",
	"alaska":               "ak",
	"arizona":              "az",
	"arkansas":             "ar",
	"california":           "ca",
	"colorado":             "co",
	"connecticut":          "ct",
	"delaware":             "de",
	"district of columbia": "dc",
	"florida":              "fl",
	"georgia":              "ga",
	"hawaii":               "hi",
	"idaho":                "id",
	"illinois":             "il",
	"indiana":              "in",
	"iowa":                 "ia",
	"kansas":               "ks",
	"kentucky":             "ky",
	"louisiana":            "la",
	"maine":                "me",
	"maryland":             "md",
	"massachusetts":        "ma",
	"michigan":             "mi",
	"minnesota":            "mn",
	"mississippi":          "ms",
	"missouri":             "mo",
	"montana":              "mt",
	"nebraska":             "ne",
	"nevada":               "nv",
	"new hampshire":        "nh",
	"new jersey":           "nj",
	"new mexico":           "nm",
	"new york":             "ny",
	"north carolina":       "nc",
	"north dakota":         "nd",
	"ohio":                 "oh",
	"oklahoma":             "ok",
	"oregon":               "or",
	"pennsylvania":         "pa",
	"rhode island":         "ri",
	"south carolina":       "sc",
	"south dakota":         "sd",
	"tennessee":            "tn",
	"texas":                "tx",
	"utah":                 "ut",
	"vermont":              "vt",
	"virginia":             "va",
	"washington":           "wa",
	"west virginia":        "wv",
	"wisconsin":            "wi",
	"wyoming":              "wy",
}

var stateAliases = map[string]string{
	"calif":            "ca",
	"cali":             "ca",
	"washington dc":    "dc",
	"washington d.c.":  "dc",
	"d.c.":             "dc",
	"state of georgia": "ga",
}

// codeSet is the set of valid two-letter codes.
var codeSet = func() map[string]bool {
	set := make(map[string]bool, len(stateCodes))
	for _, code := range stateCodes {
		set[code] = true
	}
	return set
}()

// StateCodes returns every known two-letter state code, sorted.
func StateCodes() []string {
	out := make([]string, 0, len(codeSet))
	for code := range codeSet {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}
