// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Op is a predicate operator.
type Op int

const (
	OpIn Op = iota + 1
	OpNotIn
	OpEq
	OpGte
	OpLte
	OpWithin
)

func (o Op) String() string {
	switch o {
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpEq:
		return "=="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpWithin:
		return "within"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// GeoRadius is a circle on the earth's surface.
type GeoRadius struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Predicate is a single hard filter condition. Predicates are combined with AND.
// Build them with NewPredicate or the helper constructors; the zero value matches nothing.
type Predicate struct {
	Field  Field
	Op     Op
	Values []string  // OpIn, OpNotIn
	Number float64   // OpEq, OpGte, OpLte
	Radius GeoRadius // OpWithin
}

// NewPredicate builds a predicate on field with the given operator and value.
//
// Accepted values:
//   - OpIn, OpNotIn: []string or string, on id, text and category fields
//   - OpEq: a number, on flag and integer fields; flags accept only 0 or 1
//   - OpGte, OpLte: a number, on numeric fields
//   - OpWithin: GeoRadius, on the location field
func NewPredicate(field Field, op Op, value any) (Predicate, error) {
	if !field.Valid() {
		return Predicate{}, fmt.Errorf("%w: unknown field %d", ErrInvalidPredicate, field)
	}
	p := Predicate{Field: field, Op: op}
	switch op {
	case OpIn, OpNotIn:
		if !field.Textual() {
			return Predicate{}, fmt.Errorf("%w: %s %s requires a text field", ErrInvalidPredicate, field, op)
		}
		switch v := value.(type) {
		case []string:
			p.Values = append([]string(nil), v...)
		case string:
			p.Values = []string{v}
		default:
			return Predicate{}, fmt.Errorf("%w: %s %s expects strings, got %T", ErrInvalidPredicate, field, op, value)
		}
	case OpEq, OpGte, OpLte:
		if !field.Numeric() {
			return Predicate{}, fmt.Errorf("%w: %s %s requires a numeric field", ErrInvalidPredicate, field, op)
		}
		n, ok := toFloat(value)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s %s expects a number, got %T", ErrInvalidPredicate, field, op, value)
		}
		if field.Kind() == KindFlag && (op != OpEq || (n != 0 && n != 1)) {
			return Predicate{}, fmt.Errorf("%w: %s: %w", ErrInvalidPredicate, field, ErrInvalidFlag)
		}
		p.Number = n
	case OpWithin:
		if field.Kind() != KindGeo {
			return Predicate{}, fmt.Errorf("%w: %s requires the location field", ErrInvalidPredicate, op)
		}
		r, ok := value.(GeoRadius)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s expects GeoRadius, got %T", ErrInvalidPredicate, op, value)
		}
		if r.RadiusKm <= 0 || r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
			return Predicate{}, fmt.Errorf("%w: bad radius %+v", ErrInvalidPredicate, r)
		}
		p.Radius = r
	default:
		return Predicate{}, fmt.Errorf("%w: unknown operator %d", ErrInvalidPredicate, op)
	}
	return p, nil
}

func mustPredicate(field Field, op Op, value any) Predicate {
	p, err := NewPredicate(field, op, value)
	if err != nil {
		panic(err)
	}
	return p
}

// In matches records whose field value is one of values (case-insensitive).
// It panics if field is not textual.
func In(field Field, values ...string) Predicate {
	return mustPredicate(field, OpIn, values)
}

// NotIn matches records whose field value is absent or not one of values.
func NotIn(field Field, values ...string) Predicate {
	return mustPredicate(field, OpNotIn, values)
}

// Equals matches records whose numeric field equals n.
func Equals(field Field, n float64) Predicate {
	return mustPredicate(field, OpEq, n)
}

// AtLeast matches records whose numeric field is >= n.
func AtLeast(field Field, n float64) Predicate {
	return mustPredicate(field, OpGte, n)
}

// AtMost matches records whose numeric field is <= n.
func AtMost(field Field, n float64) Predicate {
	return mustPredicate(field, OpLte, n)
}

// WithinRadius matches records located within radiusKm of the point.
func WithinRadius(lat, lon, radiusKm float64) Predicate {
	return mustPredicate(FieldLocation, OpWithin, GeoRadius{Latitude: lat, Longitude: lon, RadiusKm: radiusKm})
}

// Cost ranks predicates by evaluation cost, cheapest first:
// id membership, enum membership, flags, numeric ranges, geo.
func (p Predicate) Cost() int {
	switch {
	case p.Field == FieldID:
		return 0
	case p.Op == OpIn || p.Op == OpNotIn:
		return 1
	case p.Field.Kind() == KindFlag:
		return 2
	case p.Op == OpWithin:
		return 4
	}
	return 3
}

// Evaluate reports whether the record satisfies the predicate.
// An absent value never satisfies a predicate, except NotIn.
func (p Predicate) Evaluate(r *PropertyRecord) bool {
	if r == nil {
		return false
	}
	switch p.Op {
	case OpIn:
		v, ok := r.Text(p.Field)
		return ok && p.matches(v)
	case OpNotIn:
		v, ok := r.Text(p.Field)
		return !ok || !p.matches(v)
	case OpEq:
		v, ok := r.Number(p.Field)
		return ok && v == p.Number
	case OpGte:
		v, ok := r.Number(p.Field)
		return ok && v >= p.Number
	case OpLte:
		v, ok := r.Number(p.Field)
		return ok && v <= p.Number
	case OpWithin:
		lat, lon, ok := r.Location()
		if !ok {
			return false
		}
		d := geo.Distance(orb.Point{p.Radius.Longitude, p.Radius.Latitude}, orb.Point{lon, lat})
		return d <= p.Radius.RadiusKm*1000
	}
	return false
}

func (p Predicate) String() string {
	switch p.Op {
	case OpIn, OpNotIn:
		return fmt.Sprintf("%s %s [%s]", p.Field, p.Op, strings.Join(p.Values, ", "))
	case OpWithin:
		return fmt.Sprintf("%s within %.1fkm of (%.5f, %.5f)", p.Field, p.Radius.RadiusKm, p.Radius.Latitude, p.Radius.Longitude)
	}
	return fmt.Sprintf("%s %s %g", p.Field, p.Op, p.Number)
}

// MatchesAll reports whether the record satisfies every predicate.
func MatchesAll(preds []Predicate, r *PropertyRecord) bool {
	for _, p := range preds {
		if !p.Evaluate(r) {
			return false
		}
	}
	return true
}

// matches reports set membership. Listing ids compare exactly, other text
// fields ignore case.
func (p Predicate) matches(v string) bool {
	if p.Field == FieldID {
		return slices.Contains(p.Values, v)
	}
	return containsFold(p.Values, v)
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
