package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/core"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func sampleRecords() []*core.PropertyRecord {
	return []*core.PropertyRecord{
		{ID: "a", Description: "one", City: "oakland", HomeType: "condo", Price: f64(500000.5), Bedrooms: i64(2)},
		{ID: "b", Description: "two", City: "atlanta", HomeType: "lot", Price: f64(120000), Bedrooms: i64(0)},
		{ID: "c", Description: "three", City: "oakland", HomeType: "condo", Price: f64(1999999.2)},
	}
}

func TestGenerate(t *testing.T) {
	s := Generate(sampleRecords())

	price := s.Columns["price"]
	assert.Equal(t, Numeric, price.Type)
	assert.Equal(t, 120000.0, price.Min)
	assert.Equal(t, 2000000.0, price.Max)

	beds := s.Columns["bedrooms"]
	assert.Equal(t, 0.0, beds.Min)
	assert.Equal(t, 2.0, beds.Max)

	city := s.Columns["city"]
	assert.Equal(t, Categorical, city.Type)
	assert.Equal(t, []string{"oakland", "atlanta"}, city.UniqueValues)

	desc := s.Columns["description"]
	assert.Equal(t, Categorical, desc.Type)
	assert.Empty(t, desc.UniqueValues)

	_, hasBathrooms := s.Columns["bathrooms"]
	assert.False(t, hasBathrooms, "columns without values have no bounds")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "column_statistics.json")
	require.NoError(t, Generate(sampleRecords()).Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"unique_values": []`)
	assert.Contains(t, string(raw), `"type": "numeric"`)

	s, err := Load(path)
	require.NoError(t, err)
	lo, hi, ok := s.Bounds(core.FieldPrice)
	assert.True(t, ok)
	assert.Equal(t, 120000.0, lo)
	assert.Equal(t, 2000000.0, hi)
	assert.Equal(t, []string{"condo", "lot"}, s.Categories(core.FieldHomeType))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	s, err := LoadOrDefault(filepath.Join(dir, "missing.json"))
	assert.NoError(t, err)
	assert.Nil(t, s)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"price": {"type": "weird"}}`), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidStatistics)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json`), 0o644))
	_, err = Load(garbage)
	assert.ErrorIs(t, err, ErrInvalidStatistics)
}

func TestFallbacks(t *testing.T) {
	var s *Statistics

	tests := []struct {
		field  core.Field
		lo, hi float64
	}{
		{core.FieldPrice, 0, 95000000},
		{core.FieldPricePerSquareFoot, 0, 2100000},
		{core.FieldBedrooms, 0, 99},
		{core.FieldBathrooms, 0, 89},
		{core.FieldLivingArea, 0, 9061351},
	}
	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			lo, hi, ok := s.Bounds(tt.field)
			assert.True(t, ok)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}

	_, _, ok := s.Bounds(core.FieldYearBuilt)
	assert.False(t, ok)

	assert.Equal(t, core.DefaultCategories(core.FieldEvent), s.Categories(core.FieldEvent))

	partial := &Statistics{Columns: map[string]Column{"homeType": {Type: Categorical}}}
	assert.Equal(t, core.DefaultCategories(core.FieldHomeType), partial.Categories(core.FieldHomeType),
		"empty value lists fall back to defaults")
}
