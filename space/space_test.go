package space

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/ai/mock"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/stats"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestNumberSpace(t *testing.T) {
	linear, err := NewNumberSpace(core.FieldBedrooms, 0, 10, Linear, Similar)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, linear.Unit(5), 1e-9)
	assert.InDelta(t, 0, linear.Unit(-3), 1e-9, "clamped below")
	assert.InDelta(t, 1, linear.Unit(42), 1e-9, "clamped above")

	low := linear.EncodeNumber(0)
	assert.InDelta(t, 1, low[0], 1e-6)
	assert.InDelta(t, 0, low[1], 1e-6)
	high := linear.EncodeNumber(10)
	assert.InDelta(t, 0, high[0], 1e-6)
	assert.InDelta(t, 1, high[1], 1e-6)
	for _, x := range []float64{0, 2.5, 7, 10} {
		assert.InDelta(t, 1, norm(linear.EncodeNumber(x)), 1e-6)
	}
	assert.Greater(t, dot(linear.EncodeNumber(3), linear.EncodeNumber(4)), dot(linear.EncodeNumber(3), linear.EncodeNumber(9)))

	log, err := NewNumberSpace(core.FieldPrice, 0, 95000000, Logarithmic, Maximum)
	require.NoError(t, err)
	assert.InDelta(t, 0, log.Unit(0), 1e-9)
	assert.InDelta(t, 1, log.Unit(95000000), 1e-9)
	assert.InDelta(t, math.Log1p(500000)/math.Log1p(95000000), log.Unit(500000), 1e-9)

	t.Run("query modes", func(t *testing.T) {
		assert.Equal(t, log.EncodeNumber(95000000), log.QueryNumber(0, false), "maximum without seed")
		assert.Equal(t, log.EncodeNumber(500000), log.QueryNumber(500000, true))
		assert.Equal(t, []float32{0, 0}, linear.QueryNumber(0, false), "similar without seed")
		assert.Equal(t, linear.EncodeNumber(3), linear.QueryNumber(3, true))
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := NewNumberSpace(core.FieldPrice, 10, 1, Linear, Similar)
		assert.ErrorIs(t, err, ErrInvalidSpace)
	})

	t.Run("degenerate bounds", func(t *testing.T) {
		s, err := NewNumberSpace(core.FieldPrice, 5, 5, Linear, Similar)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, s.EncodeNumber(5))
	})
}

func TestCategorySpace(t *testing.T) {
	s, err := NewCategorySpace(core.FieldHomeType, []string{"condo", "lot", "Condo", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"condo", "lot"}, s.Categories())
	assert.Equal(t, 3, s.Dim())

	assert.Equal(t, []float32{1, 0, 0}, s.EncodeCategories("condo"))
	assert.Equal(t, []float32{0, 0, 1}, s.EncodeCategories("castle"), "unknown values use the other slot")
	assert.Equal(t, []float32{0, 0, 0}, s.EncodeCategories())

	multi := s.EncodeCategories("condo", "lot")
	assert.InDelta(t, 1, norm(multi), 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, multi[0], 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, multi[1], 1e-6)

	_, err = NewCategorySpace(core.FieldEvent, nil)
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestTextSpace(t *testing.T) {
	s, err := NewTextSpace(core.FieldDescription, 2)
	require.NoError(t, err)

	v, err := s.EncodeText([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero, err := s.EncodeText(nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, zero)

	_, err = s.EncodeText([]float32{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = NewTextSpace(core.FieldCity, 0)
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestDefaultLayout(t *testing.T) {
	l, err := DefaultLayout(nil, 8)
	require.NoError(t, err)

	assert.Equal(t, 4*8+5*2+7+7+12, l.Dim())
	assert.Equal(t, []core.Field{
		core.FieldDescription, core.FieldCity, core.FieldStreetAddress, core.FieldCounty,
		core.FieldPrice, core.FieldPricePerSquareFoot, core.FieldBedrooms, core.FieldBathrooms, core.FieldLivingArea,
		core.FieldHomeType, core.FieldEvent, core.FieldLevels,
	}, l.Fields())

	for f := range DefaultWeights() {
		_, ok := l.Space(f)
		assert.True(t, ok, "every weighted field has a space: %s", f)
	}

	price, _ := l.Space(core.FieldPrice)
	lo, hi := price.Bounds()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 95000000.0, hi)
	assert.Equal(t, Maximum, price.Mode())

	seg, ok := l.Segment(core.FieldCity)
	require.True(t, ok)
	assert.Equal(t, core.Segment{Field: core.FieldCity, Offset: 8, Dim: 8}, seg)

	t.Run("statistics change the signature", func(t *testing.T) {
		st := &stats.Statistics{Columns: map[string]stats.Column{
			"price": {Type: stats.Numeric, Min: 1000, Max: 5000000},
		}}
		other, err := DefaultLayout(st, 8)
		require.NoError(t, err)
		assert.Equal(t, l.Dim(), other.Dim())
		assert.NotEqual(t, l.Signature(), other.Signature())

		again, err := DefaultLayout(nil, 8)
		require.NoError(t, err)
		assert.Equal(t, l.Signature(), again.Signature())
	})
}

func TestLayoutCompose(t *testing.T) {
	bed, _ := NewNumberSpace(core.FieldBedrooms, 0, 10, Linear, Similar)
	ht, _ := NewCategorySpace(core.FieldHomeType, []string{"condo", "lot"})
	l, err := NewLayout(bed, ht)
	require.NoError(t, err)
	assert.Equal(t, 5, l.Dim())

	vec, err := l.Compose(map[core.Field][]float32{
		core.FieldBedrooms: {1, 0},
		core.FieldHomeType: {0, 1, 0},
	}, map[core.Field]float32{core.FieldBedrooms: 0.5, core.FieldHomeType: 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0, 0, 2, 0}, vec)

	part, err := l.Slice(vec, core.FieldHomeType)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 0}, part)

	rw, err := l.Reweight([]float32{1, 0, 0, 1, 0}, map[core.Field]float32{core.FieldHomeType: 0.7})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0.7, 0}, rw)

	_, err = l.Compose(map[core.Field][]float32{core.FieldPrice: {1, 0}}, nil)
	assert.ErrorIs(t, err, ErrUnknownSpace)
	_, err = l.Compose(map[core.Field][]float32{core.FieldBedrooms: {1}}, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	_, err = l.Slice([]float32{1}, core.FieldBedrooms)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = NewLayout(bed, bed)
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestEncoder(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	l, err := DefaultLayout(nil, embedder.Dimensions())
	require.NoError(t, err)
	enc := NewEncoder(l, embedder)

	records := []*core.PropertyRecord{
		{ID: "a", Description: "sunny condo", City: "oakland", HomeType: "condo", Price: f64(500000), Bedrooms: i64(2)},
		{ID: "b", Description: "sunny condo", City: "atlanta", Levels: "castle"},
	}
	require.NoError(t, enc.EncodeRecords(ctx, records))
	assert.Equal(t, 1, embedder.CallCount(), "one batched embedding call")

	a := records[0].Vector
	require.Len(t, a, l.Dim())

	// Every present field contributes a unit segment.
	assert.InDelta(t, 5, dot(a, a), 1e-4)
	b := records[1].Vector
	assert.InDelta(t, 3, dot(b, b), 1e-4)

	descA, _ := l.Slice(a, core.FieldDescription)
	descB, _ := l.Slice(b, core.FieldDescription)
	assert.InDelta(t, 1, dot(descA, descB), 1e-5, "same text, same segment")

	levels, _ := l.Slice(b, core.FieldLevels)
	assert.Equal(t, float32(1), levels[len(levels)-1], "unknown level goes to the other slot")

	street, _ := l.Slice(a, core.FieldStreetAddress)
	assert.Equal(t, make([]float32, embedder.Dimensions()), street)

	t.Run("embedding failure", func(t *testing.T) {
		failing := mock.NewMockEmbedder()
		failing.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("unavailable")
		}
		err := NewEncoder(l, failing).EncodeRecord(ctx, &core.PropertyRecord{ID: "x", Description: "d"})
		assert.Error(t, err)
	})

	t.Run("embed dedupes and aligns", func(t *testing.T) {
		embedder.Reset()
		var seen []string
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			seen = texts
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{float32(i + 1)}
			}
			return out, nil
		}
		got, err := enc.Embed(ctx, []string{"x", "", "y", "x"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, seen)
		assert.Equal(t, [][]float32{{1}, nil, {2}, {1}}, got)
	})
}
