package normalize

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/homesearch/core"
)

var defaultSynonyms = map[core.Field]map[string]string{
	core.FieldHomeType: {
		"house":               "single_family",
		"home":                "single_family",
		"single family home":  "single_family",
		"single family house": "single_family",
		"detached":            "single_family",
		"sfh":                 "single_family",
		"condominium":         "condo",
		"townhome":            "townhouse",
		"town house":          "townhouse",
		"town home":           "townhouse",
		"row house":           "townhouse",
		"land":                "lot",
		"vacant land":         "lot",
		"parcel":              "lot",
		"plot":                "lot",
		"multifamily":         "multi_family",
		"duplex":              "multi_family",
		"triplex":             "multi_family",
		"fourplex":            "multi_family",
		"apt":                 "apartment",
		"flat":                "apartment",
	},
	core.FieldEvent: {
		"for sale":       "listed for sale",
		"listed":         "listed for sale",
		"on the market":  "listed for sale",
		"new listing":    "listed for sale",
		"price drop":     "price change",
		"price reduced":  "price change",
		"reduced":        "price change",
		"removed":        "listing removed",
		"off market":     "listing removed",
		"delisted":       "listing removed",
		"recently sold":  "sold",
		"for rent":       "listed for rent",
		"rent":           "listed for rent",
		"rental":         "listed for rent",
		"pending":        "pending sale",
		"under contract": "pending sale",
	},
	core.FieldLevels: {
		"none":          "0",
		"one":           "1",
		"single":        "1",
		"one story":     "1",
		"single story":  "1",
		"1 story":       "1",
		"two":           "2",
		"two story":     "2",
		"2 story":       "2",
		"three":         "3+",
		"three or more": "3+",
		"3":             "3+",
		"3 or more":     "3+",
		"four":          "4",
		"five or more":  "5+",
		"multi level":   "multi",
		"multilevel":    "multi",
		"multi split":   "multi",
		"split level":   "multi",
		"tri level":     "multi",
	},
}

// Vocabulary maps free-form categorical values onto closed sets.
// A Vocabulary is immutable once built and safe for concurrent use.
type Vocabulary struct {
	synonyms map[core.Field]map[string]string
	allowed  map[core.Field][]string
}

// DefaultVocabulary returns the built-in synonym tables over the default closed sets.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		synonyms: make(map[core.Field]map[string]string),
		allowed:  make(map[core.Field][]string),
	}
	for _, f := range categoricalFields {
		v.allowed[f] = core.DefaultCategories(f)
		table := make(map[string]string)
		for _, canonical := range v.allowed[f] {
			table[key(canonical)] = canonical
		}
		for syn, canonical := range defaultSynonyms[f] {
			table[key(syn)] = canonical
		}
		v.synonyms[f] = table
	}
	return v
}

var categoricalFields = []core.Field{core.FieldHomeType, core.FieldEvent, core.FieldLevels}

// vocabularyFile is the YAML shape of a vocabulary override file:
//
//	home_type:
//	  bungalow: single_family
//	event:
//	  back on market: listed for sale
//	levels:
//	  split: multi
type vocabularyFile struct {
	HomeType map[string]string `yaml:"home_type"`
	Event    map[string]string `yaml:"event"`
	Levels   map[string]string `yaml:"levels"`
}

// LoadVocabulary reads extra synonyms from a YAML file and layers them over the
// default vocabulary. An empty path returns the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrVocabularyFile, path, err)
	}
	extra := map[core.Field]map[string]string{
		core.FieldHomeType: file.HomeType,
		core.FieldEvent:    file.Event,
		core.FieldLevels:   file.Levels,
	}
	for f, table := range extra {
		for syn, canonical := range table {
			canonical = strings.ToLower(strings.TrimSpace(canonical))
			if !slices.Contains(v.allowed[f], canonical) {
				return nil, fmt.Errorf("%w: %s synonym %q maps to unknown value %q", ErrVocabularyFile, f, syn, canonical)
			}
			v.synonyms[f][key(syn)] = canonical
		}
	}
	return v, nil
}

// WithCategories returns a copy of v whose closed set for f is values.
// Canonical values outside the new set stop mapping; new values map to themselves.
func (v *Vocabulary) WithCategories(f core.Field, values []string) *Vocabulary {
	c := &Vocabulary{
		synonyms: make(map[core.Field]map[string]string, len(v.synonyms)),
		allowed:  make(map[core.Field][]string, len(v.allowed)),
	}
	for field, table := range v.synonyms {
		cp := make(map[string]string, len(table))
		for k, val := range table {
			cp[k] = val
		}
		c.synonyms[field] = cp
	}
	for field, set := range v.allowed {
		c.allowed[field] = append([]string(nil), set...)
	}
	if _, ok := c.synonyms[f]; !ok || len(values) == 0 {
		return c
	}
	set := make([]string, 0, len(values))
	for _, val := range values {
		val = strings.ToLower(strings.TrimSpace(val))
		if val != "" && !slices.Contains(set, val) {
			set = append(set, val)
			c.synonyms[f][key(val)] = val
		}
	}
	c.allowed[f] = set
	return c
}

// Allowed returns the closed set for a categorical field.
func (v *Vocabulary) Allowed(f core.Field) []string {
	return append([]string(nil), v.allowed[f]...)
}

// Canonical maps value onto the closed set of f. It is idempotent on canonical
// values and reports false for values that do not map.
func (v *Vocabulary) Canonical(f core.Field, value string) (string, bool) {
	table, ok := v.synonyms[f]
	if !ok {
		return "", false
	}
	k := key(value)
	if k == "" {
		return "", false
	}
	candidates := []string{k}
	if strings.HasSuffix(k, "es") {
		candidates = append(candidates, strings.TrimSuffix(k, "es"))
	}
	if strings.HasSuffix(k, "s") {
		candidates = append(candidates, strings.TrimSuffix(k, "s"))
	}
	for _, c := range candidates {
		if canonical, ok := table[c]; ok && slices.Contains(v.allowed[f], canonical) {
			return canonical, true
		}
	}
	return "", false
}

// CanonicalList maps each value onto the closed set of f, returning the mapped
// values (deduplicated, first-mention order) and the values that were dropped.
func (v *Vocabulary) CanonicalList(f core.Field, values []string) (kept, dropped []string) {
	for _, val := range values {
		if c, ok := v.Canonical(f, val); ok {
			kept = append(kept, c)
		} else {
			dropped = append(dropped, val)
		}
	}
	return Dedupe(kept), dropped
}

// HomeType maps a home type description onto the closed set.
func (v *Vocabulary) HomeType(s string) (string, bool) { return v.Canonical(core.FieldHomeType, s) }

// Event maps a listing status onto the closed set.
func (v *Vocabulary) Event(s string) (string, bool) { return v.Canonical(core.FieldEvent, s) }

// Level maps a storey description onto the closed set. Values that do not map
// fall into the "other" bucket when it is part of the set.
func (v *Vocabulary) Level(s string) (string, bool) {
	if c, ok := v.Canonical(core.FieldLevels, s); ok {
		return c, true
	}
	if strings.TrimSpace(s) != "" && slices.Contains(v.allowed[core.FieldLevels], core.OtherLevel) {
		return core.OtherLevel, true
	}
	return "", false
}

// State maps a state name or code to its lowercase two-letter code.
func (v *Vocabulary) State(s string) (string, bool) {
	k := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
	if codeSet[k] {
		return k, true
	}
	if code, ok := stateCodes[k]; ok {
		return code, true
	}
	if code, ok := stateAliases[k]; ok {
		return code, true
	}
	return "", false
}

// Place lowercases and trims a city or county name. It never infers a value.
func Place(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// key folds a value for synonym lookup: lowercase, '-', '_' and '/' as spaces,
// collapsed whitespace.
func key(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
