package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/core"
)

func TestParseMagnitude(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"500k", 500000, false},
		{"500K", 500000, false},
		{"1.2M", 1200000, false},
		{"1.2m", 1200000, false},
		{"2 million", 2000000, false},
		{"1.5 billion", 1500000000, false},
		{"$750,000", 750000, false},
		{"1 million dollars", 1000000, false},
		{"42", 42, false},
		{".5k", 500, false},
		{"", 0, true},
		{"lots", 0, true},
		{"5 apples", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMagnitude(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNumber)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 2.0, Round(2.5, Whole))
	assert.Equal(t, 4.0, Round(3.5, Whole))
	assert.Equal(t, 1076.0, Round(1076.39, Whole))
	assert.Equal(t, 12.35, Round(12.345000001, Cents))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		q      Quantity
		want   Range
	}{
		{"under", "under 500k", Money, AtMost(500000)},
		{"below with dollars", "below $1 million dollars", Money, AtMost(1000000)},
		{"over", "over 2M", Money, AtLeast(2000000)},
		{"above", "above 300000", Money, AtLeast(300000)},
		{"at least", "at least 3 bedrooms", Count, AtLeast(3)},
		{"plus suffix", "3+", Count, AtLeast(3)},
		{"or more", "2 or more", Count, AtLeast(2)},
		{"or less", "4 or less", Count, AtMost(4)},
		{"between", "between 400k and 600k", Money, Between(400000, 600000)},
		{"between reversed", "between 600k and 400k", Money, Between(400000, 600000)},
		{"from to", "from 400k to 600k", Money, Between(400000, 600000)},
		{"dash", "400k-600k", Money, Between(400000, 600000)},
		{"en dash", "400k–600k", Money, Between(400000, 600000)},
		{"dash with shared suffix", "400-600k", Money, Between(400000, 600000)},
		{"to", "2 to 4", Count, Between(2, 4)},
		{"around", "around 1M", Money, Range{Min: 900000, Max: 1100000, HasMin: true, HasMax: true}},
		{"approximately", "approximately 500k", Money, Range{Min: 450000, Max: 550000, HasMin: true, HasMax: true}},
		{"roughly cents", "roughly 333.33", PricePerArea, Range{Min: 300, Max: 366.66, HasMin: true, HasMax: true}},
		{"bare", "750k", Money, Exact(750000)},
		{"square meters", "100 square meters", Area, Exact(1076)},
		{"sqm", "100 sqm", Area, Exact(1076)},
		{"m2 range", "under 100 m2", Area, AtMost(1076)},
		{"square feet untouched", "2000 sq ft", Area, Exact(2000)},
		{"per square meter", "5000 per sqm", PricePerArea, Exact(464.52)},
		{"around square meters", "around 100 sqm", Area, Range{Min: 969, Max: 1184, HasMin: true, HasMax: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.phrase, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want.HasMin, got.HasMin, "HasMin")
			assert.Equal(t, tt.want.HasMax, got.HasMax, "HasMax")
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9, "Min")
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9, "Max")
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, phrase := range []string{"", "cheap", "under a lot", "between x and y"} {
		t.Run(phrase, func(t *testing.T) {
			_, err := ParseRange(phrase, Money)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("1.5M", Money)
	require.NoError(t, err)
	assert.Equal(t, 1500000.0, v)

	_, err = ParseValue("under 5", Count)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRangeHelpers(t *testing.T) {
	r := Between(10, 20)
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(21))
	assert.False(t, r.IsExact())
	assert.True(t, Exact(5).IsExact())
	assert.True(t, Range{}.Empty())
	assert.Equal(t, "10..20", r.String())
	assert.Equal(t, "<=5", AtMost(5).String())
}

func TestUnitConversionRoundTrip(t *testing.T) {
	for _, sqm := range []float64{1, 37, 100, 250.5, 1000} {
		sqft := SquareMetersToSquareFeet(sqm)
		assert.InDelta(t, sqm, SquareFeetToSquareMeters(sqft), 1, "sqm %v", sqm)
	}
	for _, sqft := range []float64{1, 450, 1200, 2750.5, 9061351} {
		sqm := SquareFeetToSquareMeters(sqft)
		assert.InDelta(t, sqft, SquareMetersToSquareFeet(sqm), 1, "sqft %v", sqft)
	}
	assert.Equal(t, 464.52, PerSquareMeterToPerSquareFoot(5000))
}

func TestVocabularyCanonical(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		field core.Field
		in    string
		want  string
		ok    bool
	}{
		{core.FieldHomeType, "house", "single_family", true},
		{core.FieldHomeType, "Single Family Homes", "single_family", true},
		{core.FieldHomeType, "single-family", "single_family", true},
		{core.FieldHomeType, "condominium", "condo", true},
		{core.FieldHomeType, "condos", "condo", true},
		{core.FieldHomeType, "townhome", "townhouse", true},
		{core.FieldHomeType, "land", "lot", true},
		{core.FieldHomeType, "castle", "", false},
		{core.FieldEvent, "for sale", "listed for sale", true},
		{core.FieldEvent, "pending", "pending sale", true},
		{core.FieldEvent, "rent", "listed for rent", true},
		{core.FieldEvent, "SOLD", "sold", true},
		{core.FieldEvent, "foreclosed", "", false},
		{core.FieldLevels, "two story", "2", true},
		{core.FieldLevels, "3+", "3+", true},
		{core.FieldLevels, "multi/split", "multi", true},
		{core.FieldCity, "oakland", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.field.String()+"/"+tt.in, func(t *testing.T) {
			got, ok := v.Canonical(tt.field, tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVocabularyIdempotent(t *testing.T) {
	v := DefaultVocabulary()
	for _, f := range []core.Field{core.FieldHomeType, core.FieldEvent, core.FieldLevels} {
		for _, value := range v.Allowed(f) {
			once, ok := v.Canonical(f, value)
			require.True(t, ok, "%s %q", f, value)
			twice, ok := v.Canonical(f, once)
			require.True(t, ok)
			assert.Equal(t, once, twice)
			assert.Equal(t, value, once)
		}
	}
}

func TestVocabularyLevelFallback(t *testing.T) {
	v := DefaultVocabulary()
	got, ok := v.Level("split foyer")
	assert.True(t, ok)
	assert.Equal(t, core.OtherLevel, got)

	_, ok = v.Level("  ")
	assert.False(t, ok)
}

func TestVocabularyCanonicalList(t *testing.T) {
	v := DefaultVocabulary()
	kept, dropped := v.CanonicalList(core.FieldHomeType, []string{"condo", "house", "castle", "condominium"})
	assert.Equal(t, []string{"condo", "single_family"}, kept)
	assert.Equal(t, []string{"castle"}, dropped)
}

func TestVocabularyWithCategories(t *testing.T) {
	v := DefaultVocabulary().WithCategories(core.FieldLevels, []string{"1", "2", "Split"})
	got, ok := v.Canonical(core.FieldLevels, "split")
	assert.True(t, ok)
	assert.Equal(t, "split", got)

	_, ok = v.Canonical(core.FieldLevels, "3+")
	assert.False(t, ok, "values outside the restricted set stop mapping")

	// The original vocabulary is unchanged.
	_, ok = DefaultVocabulary().Canonical(core.FieldLevels, "3+")
	assert.True(t, ok)

	got, ok = v.Level("tower")
	assert.False(t, ok, "no other bucket in the restricted set")
	assert.Empty(t, got)
}

func TestVocabularyState(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"California", "ca", true},
		{"CA", "ca", true},
		{"ga", "ga", true},
		{"georgia", "ga", true},
		{"New  York", "ny", true},
		{"Washington DC", "dc", true},
		{"Atlantis", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := v.State(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, StateCodes(), 51)
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("home_type:\n  bungalow: single_family\nevent:\n  back on market: listed for sale\n"), 0o644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	got, ok := v.HomeType("Bungalow")
	assert.True(t, ok)
	assert.Equal(t, "single_family", got)
	got, ok = v.Event("back on market")
	assert.True(t, ok)
	assert.Equal(t, "listed for sale", got)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("home_type:\n  yurt: tent\n"), 0o644))
	_, err = LoadVocabulary(bad)
	assert.ErrorIs(t, err, ErrVocabularyFile)

	_, err = LoadVocabulary(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	v, err = LoadVocabulary("")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"Oakland", "berkeley"}, Dedupe([]string{"Oakland", "berkeley", "oakland", " ", "BERKELEY"}))
	assert.Nil(t, Dedupe(nil))
}

func TestDedupeExact(t *testing.T) {
	assert.Equal(t, []string{"AbC-1", "abc-1", "x"}, DedupeExact([]string{"AbC-1", "abc-1", " ", "AbC-1", " x "}))
	assert.Nil(t, DedupeExact(nil))
}

func TestPlace(t *testing.T) {
	assert.Equal(t, "san francisco", Place("  San   Francisco "))
}
