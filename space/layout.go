package space

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/stats"
)

// Layout concatenates a fixed sequence of spaces into one composite vector.
// It is immutable and safe for concurrent use.
type Layout struct {
	spaces   []*Space
	segments []core.Segment
	byField  map[core.Field]int
	dim      int
}

// NewLayout lays spaces out in the given order. Each field may appear once.
func NewLayout(spaces ...*Space) (*Layout, error) {
	l := &Layout{byField: make(map[core.Field]int, len(spaces))}
	for i, s := range spaces {
		if s == nil {
			return nil, fmt.Errorf("%w: nil space at %d", ErrInvalidSpace, i)
		}
		if _, dup := l.byField[s.field]; dup {
			return nil, fmt.Errorf("%w: %s declared twice", ErrInvalidSpace, s.field)
		}
		l.byField[s.field] = i
		l.spaces = append(l.spaces, s)
		l.segments = append(l.segments, core.Segment{Field: s.field, Offset: l.dim, Dim: s.dim})
		l.dim += s.dim
	}
	return l, nil
}

// DefaultLayout builds the property layout: four text spaces over embeddings
// of size textDim, five number spaces bounded by st, and three category
// spaces over the categories in st. A nil st uses the built-in fallbacks.
func DefaultLayout(st *stats.Statistics, textDim int) (*Layout, error) {
	var spaces []*Space
	add := func(s *Space, err error) error {
		if err != nil {
			return err
		}
		spaces = append(spaces, s)
		return nil
	}

	for _, f := range []core.Field{core.FieldDescription, core.FieldCity, core.FieldStreetAddress, core.FieldCounty} {
		if err := add(NewTextSpace(f, textDim)); err != nil {
			return nil, err
		}
	}

	numbers := []struct {
		field core.Field
		scale Scale
		mode  Mode
	}{
		{core.FieldPrice, Logarithmic, Maximum},
		{core.FieldPricePerSquareFoot, Logarithmic, Maximum},
		{core.FieldBedrooms, Linear, Similar},
		{core.FieldBathrooms, Linear, Similar},
		{core.FieldLivingArea, Logarithmic, Maximum},
	}
	for _, n := range numbers {
		lo, hi, _ := st.Bounds(n.field)
		if err := add(NewNumberSpace(n.field, lo, hi, n.scale, n.mode)); err != nil {
			return nil, err
		}
	}

	for _, f := range []core.Field{core.FieldHomeType, core.FieldEvent, core.FieldLevels} {
		if err := add(NewCategorySpace(f, st.Categories(f))); err != nil {
			return nil, err
		}
	}

	return NewLayout(spaces...)
}

// Dim returns the composite vector size.
func (l *Layout) Dim() int { return l.dim }

// Spaces returns the spaces in layout order.
func (l *Layout) Spaces() []*Space { return slices.Clone(l.spaces) }

// Segments returns the segment table in layout order.
func (l *Layout) Segments() []core.Segment { return slices.Clone(l.segments) }

// Fields returns the embedded fields in layout order.
func (l *Layout) Fields() []core.Field {
	out := make([]core.Field, len(l.spaces))
	for i, s := range l.spaces {
		out[i] = s.field
	}
	return out
}

// Space returns the space embedding f.
func (l *Layout) Space(f core.Field) (*Space, bool) {
	i, ok := l.byField[f]
	if !ok {
		return nil, false
	}
	return l.spaces[i], true
}

// Segment returns the position of f inside a composite vector.
func (l *Layout) Segment(f core.Field) (core.Segment, bool) {
	i, ok := l.byField[f]
	if !ok {
		return core.Segment{}, false
	}
	return l.segments[i], true
}

// Slice returns the part of vec belonging to f. The result aliases vec.
func (l *Layout) Slice(vec []float32, f core.Field) ([]float32, error) {
	if len(vec) != l.dim {
		return nil, fmt.Errorf("%w: layout %d, vector %d", core.ErrDimensionMismatch, l.dim, len(vec))
	}
	seg, ok := l.Segment(f)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpace, f)
	}
	return vec[seg.Offset : seg.Offset+seg.Dim], nil
}

// Compose concatenates per-field segments, scaling each by its weight.
// Fields missing from parts or weights contribute zeros.
func (l *Layout) Compose(parts map[core.Field][]float32, weights map[core.Field]float32) ([]float32, error) {
	out := make([]float32, l.dim)
	for f, part := range parts {
		seg, ok := l.Segment(f)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSpace, f)
		}
		if len(part) != seg.Dim {
			return nil, fmt.Errorf("%w: %s expects %d, got %d", core.ErrDimensionMismatch, f, seg.Dim, len(part))
		}
		w := weights[f]
		if w == 0 {
			continue
		}
		for i, x := range part {
			out[seg.Offset+i] = w * x
		}
	}
	return out, nil
}

// Reweight scales each segment of a stored record vector by its weight,
// turning it into a query vector.
func (l *Layout) Reweight(vec []float32, weights map[core.Field]float32) ([]float32, error) {
	if len(vec) != l.dim {
		return nil, fmt.Errorf("%w: layout %d, vector %d", core.ErrDimensionMismatch, l.dim, len(vec))
	}
	out := make([]float32, l.dim)
	for _, seg := range l.segments {
		w := weights[seg.Field]
		for i := seg.Offset; i < seg.Offset+seg.Dim; i++ {
			out[i] = w * vec[i]
		}
	}
	return out, nil
}

// Signature identifies the layout: its spaces, their sizes, bounds and
// categories. Vectors written under one signature are meaningless under another.
func (l *Layout) Signature() string {
	h := sha256.New()
	for _, s := range l.spaces {
		fmt.Fprintf(h, "%s|%s|%d|", s.field, s.kind, s.dim)
		switch s.kind {
		case Number:
			fmt.Fprintf(h, "%d|%d|%x|%x|", s.scale, s.mode, math.Float64bits(s.min), math.Float64bits(s.max))
		case Categorical:
			for _, c := range s.categories {
				fmt.Fprintf(h, "%s,", c)
			}
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// DefaultWeights returns the default weight of every similarity field.
// Bedrooms and bathrooms are embedded but weigh nothing unless overridden.
func DefaultWeights() map[core.Field]float32 {
	return map[core.Field]float32{
		core.FieldDescription:        1.0,
		core.FieldCity:               0.8,
		core.FieldHomeType:           0.7,
		core.FieldStreetAddress:      0.6,
		core.FieldCounty:             0.6,
		core.FieldPrice:              0.5,
		core.FieldPricePerSquareFoot: 0.4,
		core.FieldLivingArea:         0.3,
		core.FieldEvent:              0.2,
		core.FieldLevels:             0.1,
		core.FieldBedrooms:           0,
		core.FieldBathrooms:          0,
	}
}
