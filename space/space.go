// Package space defines the similarity spaces a property is embedded into,
// the layout that concatenates them into one composite vector, and the
// encoder that fills in record vectors.
//
// Every segment of a record vector has unit length (or is all zeros when the
// field is absent), so the dot product of a record vector with a query vector
// whose segments are scaled by per-field weights is the weighted sum of the
// per-field cosine similarities.
package space

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/homesearch/core"
)

var (
	// ErrUnknownSpace indicates a field has no similarity space in the layout.
	ErrUnknownSpace = errors.New("unknown similarity space")

	// ErrInvalidSpace indicates a space was declared with invalid parameters.
	ErrInvalidSpace = errors.New("invalid similarity space")
)

// Kind identifies the encoding a space uses.
type Kind int

const (
	Text Kind = iota + 1
	Number
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Scale maps a number onto [0, 1].
type Scale int

const (
	Linear Scale = iota
	Logarithmic
)

// Mode decides what a number space contributes to a query without a seed.
type Mode int

const (
	// Similar spaces contribute nothing unless seeded.
	Similar Mode = iota
	// Maximum spaces favour the largest values unless seeded.
	Maximum
)

// Space is one similarity space. Construct with NewTextSpace, NewNumberSpace
// or NewCategorySpace; a Space is immutable afterwards.
type Space struct {
	field core.Field
	kind  Kind
	dim   int

	min, max float64
	scale    Scale
	mode     Mode

	categories []string
	index      map[string]int
}

// NewTextSpace declares a text space over embedding vectors of size dim.
func NewTextSpace(f core.Field, dim int) (*Space, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %s has dimension %d", ErrInvalidSpace, f, dim)
	}
	return &Space{field: f, kind: Text, dim: dim}, nil
}

// NewNumberSpace declares a number space over [min, max].
func NewNumberSpace(f core.Field, min, max float64, scale Scale, mode Mode) (*Space, error) {
	if math.IsNaN(min) || math.IsNaN(max) || max < min {
		return nil, fmt.Errorf("%w: %s has bounds [%g, %g]", ErrInvalidSpace, f, min, max)
	}
	return &Space{field: f, kind: Number, dim: 2, min: min, max: max, scale: scale, mode: mode}, nil
}

// NewCategorySpace declares a one-hot space over categories plus one slot
// for values outside the set.
func NewCategorySpace(f core.Field, categories []string) (*Space, error) {
	s := &Space{field: f, kind: Categorical, index: make(map[string]int, len(categories))}
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := s.index[c]; dup {
			continue
		}
		s.index[c] = len(s.categories)
		s.categories = append(s.categories, c)
	}
	if len(s.categories) == 0 {
		return nil, fmt.Errorf("%w: %s has no categories", ErrInvalidSpace, f)
	}
	s.dim = len(s.categories) + 1
	return s, nil
}

// Field returns the record field the space embeds.
func (s *Space) Field() core.Field { return s.field }

// Kind returns the space's encoding.
func (s *Space) Kind() Kind { return s.kind }

// Dim returns the segment size.
func (s *Space) Dim() int { return s.dim }

// Bounds returns the range of a number space.
func (s *Space) Bounds() (min, max float64) { return s.min, s.max }

// Mode returns the query mode of a number space.
func (s *Space) Mode() Mode { return s.mode }

// Categories returns a copy of the category list, without the other slot.
func (s *Space) Categories() []string { return slices.Clone(s.categories) }

// Unit maps x onto [0, 1] using the space's bounds and scale.
// Values outside the bounds are clamped.
func (s *Space) Unit(x float64) float64 {
	if s.max <= s.min {
		return 0
	}
	x = math.Max(s.min, math.Min(s.max, x))
	if s.scale == Logarithmic {
		return math.Log1p(x-s.min) / math.Log1p(s.max-s.min)
	}
	return (x - s.min) / (s.max - s.min)
}

// EncodeNumber encodes x as the unit vector [cos(nπ/2), sin(nπ/2)] where n is
// the unit value of x. Nearby values have a dot product close to one.
func (s *Space) EncodeNumber(x float64) []float32 {
	n := s.Unit(x)
	angle := n * math.Pi / 2
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

// QueryNumber returns the query segment of a number space. seeded reports
// whether seed holds a value; without one a Maximum space encodes its upper
// bound and a Similar space contributes zeros.
func (s *Space) QueryNumber(seed float64, seeded bool) []float32 {
	switch {
	case seeded:
		return s.EncodeNumber(seed)
	case s.mode == Maximum:
		return s.EncodeNumber(s.max)
	}
	return make([]float32, s.dim)
}

// EncodeCategories encodes values as a normalized multi-hot vector. Values
// outside the category set share the other slot; an empty list encodes as zeros.
func (s *Space) EncodeCategories(values ...string) []float32 {
	v := make([]float32, s.dim)
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		i, ok := s.index[value]
		if !ok {
			i = len(s.categories)
		}
		v[i] = 1
	}
	return Normalize(v)
}

// EncodeText validates and normalizes an embedding. A nil vector encodes as zeros.
func (s *Space) EncodeText(embedding []float32) ([]float32, error) {
	if embedding == nil {
		return make([]float32, s.dim), nil
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", core.ErrDimensionMismatch, s.field, s.dim, len(embedding))
	}
	return Normalize(slices.Clone(embedding)), nil
}

// Normalize scales v to unit length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
