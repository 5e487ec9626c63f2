package query

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/normalize"
)

// Request parameter names that do not follow the per-field patterns.
const (
	ParamNaturalQuery  = "natural_query"
	ParamLimit         = "limit"
	ParamIDsInclude    = "ids_include"
	ParamIDsExclude    = "ids_exclude"
	ParamNearLatitude  = "near_latitude"
	ParamNearLongitude = "near_longitude"
	ParamRadiusKm      = "radius_km"
)

// Resolver turns raw request values into canonical Parameters using a vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	vocab *normalize.Vocabulary
}

// NewResolver creates a resolver. A nil vocabulary uses normalize.DefaultVocabulary.
func NewResolver(vocab *normalize.Vocabulary) *Resolver {
	if vocab == nil {
		vocab = normalize.DefaultVocabulary()
	}
	return &Resolver{vocab: vocab}
}

// Vocabulary returns the resolver's vocabulary.
func (r *Resolver) Vocabulary() *normalize.Vocabulary {
	return r.vocab
}

// Resolve validates a structured request. Malformed parameters are reported
// as FieldErrors and left unset; natural_query is ignored here.
func (r *Resolver) Resolve(input map[string]any) (*Parameters, []FieldError) {
	b := NewParametersBuilder()
	var errs []FieldError
	reject := func(param string, value any, err error) {
		errs = append(errs, FieldError{Param: param, Value: value, Source: SourceRequest, Err: err})
	}

	// Keys are visited in sorted order so errors come out deterministically.
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ranges := make(map[core.Field]normalize.Range)
	rangeParams := make(map[core.Field][]string)
	var near [3]*float64

	for _, key := range keys {
		value := input[key]
		if value == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(key))

		switch {
		case name == ParamNaturalQuery:
			continue

		case name == ParamLimit:
			n, err := toInt(value)
			if err != nil || n <= 0 {
				reject(key, value, ErrInvalidLimit)
				continue
			}
			b.Limit(n)

		case name == ParamIDsInclude || name == ParamIDsExclude:
			ids, err := toStrings(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			if name == ParamIDsInclude {
				b.IncludeIDs(ids...)
			} else {
				b.ExcludeIDs(ids...)
			}

		case name == ParamNearLatitude || name == ParamNearLongitude || name == ParamRadiusKm:
			n, err := toFloat(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			idx := map[string]int{ParamNearLatitude: 0, ParamNearLongitude: 1, ParamRadiusKm: 2}[name]
			near[idx] = &n

		case strings.HasSuffix(name, "_weight"):
			f, ok := fieldForParam(strings.TrimSuffix(name, "_weight"), weightFields)
			if !ok {
				reject(key, value, ErrUnknownParameter)
				continue
			}
			w, err := toFloat(value)
			if err != nil || w < 0 {
				reject(key, value, ErrInvalidWeight)
				continue
			}
			b.Weight(f, float32(w))

		case strings.HasSuffix(name, "_filter"):
			stem := strings.TrimSuffix(name, "_filter")
			if f, ok := fieldForParam(stem, core.FieldsOfKind(core.KindFlag)); ok {
				flag, err := toFlag(value)
				if err != nil {
					reject(key, value, err)
					continue
				}
				b.Flag(f, flag)
				continue
			}
			f, ok := fieldForParam(stem, setFields)
			if !ok {
				reject(key, value, ErrUnknownParameter)
				continue
			}
			values, err := toStrings(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			kept, dropped := r.canonicalSet(f, values)
			if len(dropped) > 0 {
				reject(key, dropped, ErrUnmappedValue)
			}
			b.Set(f, kept...)

		case strings.HasPrefix(name, "min_") || strings.HasPrefix(name, "max_"):
			f, ok := fieldForParam(name[4:], rangeFields)
			if !ok {
				reject(key, value, ErrUnknownParameter)
				continue
			}
			n, err := r.value(value, quantities[f])
			if err != nil {
				reject(key, value, err)
				continue
			}
			cur := ranges[f]
			if strings.HasPrefix(name, "min_") {
				cur.Min, cur.HasMin = n, true
			} else {
				cur.Max, cur.HasMax = n, true
			}
			ranges[f] = cur
			rangeParams[f] = append(rangeParams[f], key)

		default:
			if f, ok := fieldForParam(name, rangeFields); ok {
				rg, err := r.phrase(value, quantities[f])
				if err != nil {
					reject(key, value, err)
					continue
				}
				// Explicit min_/max_ bounds win over the phrase.
				cur := ranges[f]
				if !cur.HasMin && rg.HasMin {
					cur.Min, cur.HasMin = rg.Min, true
				}
				if !cur.HasMax && rg.HasMax {
					cur.Max, cur.HasMax = rg.Max, true
				}
				ranges[f] = cur
				rangeParams[f] = append(rangeParams[f], key)
				continue
			}
			if f, ok := fieldForParam(name, categorySeedFields); ok {
				values, err := toStrings(value)
				if err != nil {
					reject(key, value, err)
					continue
				}
				kept, dropped := r.canonicalSet(f, values)
				if len(dropped) > 0 {
					reject(key, dropped, ErrUnmappedValue)
				}
				b.CategorySeed(f, kept...)
				continue
			}
			if f, ok := fieldForParam(name, textSeedFields); ok {
				text, err := toText(value)
				if err != nil {
					reject(key, value, err)
					continue
				}
				b.TextSeed(f, text)
				continue
			}
			reject(key, value, ErrUnknownParameter)
		}
	}

	for _, f := range rangeFields {
		rg, ok := ranges[f]
		if !ok {
			continue
		}
		if _, err := NewParametersBuilder().Range(f, rg).Build(); err != nil {
			reject(strings.Join(rangeParams[f], ","), rg.String(), err)
			continue
		}
		b.Range(f, rg)
	}

	switch {
	case near[0] != nil && near[1] != nil && near[2] != nil:
		if _, err := NewParametersBuilder().Near(*near[0], *near[1], *near[2]).Build(); err != nil {
			reject(ParamNearLatitude, []float64{*near[0], *near[1], *near[2]}, err)
			break
		}
		b.Near(*near[0], *near[1], *near[2])
	case near[0] != nil || near[1] != nil || near[2] != nil:
		reject(ParamNearLatitude, nil, ErrIncompleteGeo)
	}

	p, _ := b.Build()
	return p, errs
}

// ResolveExtracted validates a parameter object produced by a
// ParameterExtractor. List keys become set filters; description and
// street_address become text seeds; numeric keys become ranges.
func (r *Resolver) ResolveExtracted(params ai.ExtractedParameters) (*Parameters, []FieldError) {
	b := NewParametersBuilder()
	var errs []FieldError
	reject := func(key string, value any, err error) {
		errs = append(errs, FieldError{Param: key, Value: value, Source: SourceExtracted, Err: err})
	}

	for _, key := range ai.ParameterKeys {
		value := params[key]
		if isNull(value) {
			continue
		}

		switch key {
		case ai.KeyID:
			ids, err := toStrings(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			b.IncludeIDs(ids...)

		case ai.KeyDescription, ai.KeyStreetAddress:
			text, err := toText(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			f := core.FieldDescription
			if key == ai.KeyStreetAddress {
				f = core.FieldStreetAddress
			}
			b.TextSeed(f, text)

		case ai.KeyCity, ai.KeyState, ai.KeyCounty, ai.KeyHomeType, ai.KeyEvent, ai.KeyLevels:
			f, _ := fieldForParam(key, setFields)
			values, err := toStrings(value)
			if err != nil {
				reject(key, value, err)
				continue
			}
			kept, dropped := r.canonicalSet(f, values)
			if len(dropped) > 0 {
				reject(key, dropped, ErrUnmappedValue)
			}
			b.Set(f, kept...)

		case ai.KeyPrice, ai.KeyPricePerSqft, ai.KeyLivingArea, ai.KeyBedrooms, ai.KeyBathrooms:
			f, _ := fieldForParam(key, rangeFields)
			rg, err := r.phrase(value, quantities[f])
			if err != nil {
				reject(key, value, err)
				continue
			}
			if _, err := NewParametersBuilder().Range(f, rg).Build(); err != nil {
				reject(key, value, err)
				continue
			}
			b.Range(f, rg)
		}
	}

	p, _ := b.Build()
	return p, errs
}

// canonicalSet maps values of a set field onto their canonical form.
// Cities and counties are only cleaned up; states map to two-letter codes;
// categorical fields map onto the vocabulary's closed sets.
func (r *Resolver) canonicalSet(f core.Field, values []string) (kept, dropped []string) {
	switch f {
	case core.FieldCity, core.FieldCounty:
		for _, v := range values {
			if place := normalize.Place(v); place != "" {
				kept = append(kept, place)
			}
		}
	case core.FieldState:
		for _, v := range values {
			if code, ok := r.vocab.State(v); ok {
				kept = append(kept, code)
			} else if strings.TrimSpace(v) != "" {
				dropped = append(dropped, v)
			}
		}
	default:
		kept, dropped = r.vocab.CanonicalList(f, values)
	}
	return normalize.Dedupe(kept), dropped
}

// phrase reads a numeric value or range phrase.
func (r *Resolver) phrase(value any, q normalize.Quantity) (normalize.Range, error) {
	switch v := value.(type) {
	case string:
		rg, err := normalize.ParseRange(v, q)
		if err != nil {
			return normalize.Range{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return rg, nil
	default:
		n, err := toFloat(value)
		if err != nil {
			return normalize.Range{}, err
		}
		return normalize.Exact(normalize.Round(n, q.Precision())), nil
	}
}

// value reads a single numeric bound.
func (r *Resolver) value(value any, q normalize.Quantity) (float64, error) {
	if s, ok := value.(string); ok {
		n, err := normalize.ParseValue(s, q)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return n, nil
	}
	n, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	return normalize.Round(n, q.Precision()), nil
}

// fieldForParam finds the field among candidates whose parameter stem is stem.
func fieldForParam(stem string, candidates []core.Field) (core.Field, bool) {
	for _, f := range candidates {
		if f.Param() == stem {
			return f, true
		}
	}
	return 0, false
}

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

func toFloat(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, x)
		}
		n = f
	case string:
		f, err := normalize.ParseMagnitude(x)
		if err != nil {
			if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidValue, x)
			}
		}
		n = f
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return n, nil
}

func toInt(v any) (int, error) {
	n, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
	}
	return int(n), nil
}

func toFlag(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes":
			return true, nil
		case "0", "false", "no":
			return false, nil
		}
		return false, fmt.Errorf("%w: flag %q", ErrInvalidValue, x)
	}
	n, err := toFloat(v)
	if err != nil {
		return false, err
	}
	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	}
	return false, fmt.Errorf("%w: flag must be 0 or 1, got %v", ErrInvalidValue, v)
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any, []string:
		parts, err := toStrings(x)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("%w: expected text, got %T", ErrInvalidValue, v)
}

// toStrings accepts a list of strings or a comma-separated string.
func toStrings(v any) ([]string, error) {
	var out []string
	switch x := v.(type) {
	case string:
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []string:
		out = slices.Clone(x)
	case []any:
		for _, item := range x {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, int, int64, json.Number:
				out = append(out, fmt.Sprint(s))
			case nil:
			default:
				return nil, fmt.Errorf("%w: expected strings, got %T", ErrInvalidValue, item)
			}
		}
	default:
		return nil, fmt.Errorf("%w: expected a list of strings, got %T", ErrInvalidValue, v)
	}
	return out, nil
}
