// Package stats reads, writes and generates the column-statistics sidecar:
// numeric bounds and categorical value sets observed in the dataset.
//
// The file is a JSON object keyed by dataset column name:
//
//	{
//	  "price":    {"type": "numeric", "min": 0, "max": 95000000},
//	  "homeType": {"type": "categorical", "unique_values": ["condo", "lot"]}
//	}
//
// Bounds and categories fall back to fixed defaults when the sidecar is missing
// or lacks a column.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/poiesic/homesearch/core"
)

var (
	// ErrInvalidStatistics indicates the sidecar file could not be decoded.
	ErrInvalidStatistics = errors.New("invalid column statistics")
)

// ColumnType distinguishes numeric from categorical columns.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
)

// Column holds the statistics of one dataset column.
type Column struct {
	Type         ColumnType
	Min          float64
	Max          float64
	UniqueValues []string
}

type columnJSON struct {
	Type         ColumnType `json:"type"`
	Min          *float64   `json:"min,omitempty"`
	Max          *float64   `json:"max,omitempty"`
	UniqueValues *[]string  `json:"unique_values,omitempty"`
}

func (c Column) MarshalJSON() ([]byte, error) {
	out := columnJSON{Type: c.Type}
	switch c.Type {
	case Numeric:
		out.Min, out.Max = &c.Min, &c.Max
	case Categorical:
		values := c.UniqueValues
		if values == nil {
			values = []string{}
		}
		out.UniqueValues = &values
	}
	return json.Marshal(out)
}

func (c *Column) UnmarshalJSON(data []byte) error {
	var in columnJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Type = in.Type
	if in.Min != nil {
		c.Min = *in.Min
	}
	if in.Max != nil {
		c.Max = *in.Max
	}
	if in.UniqueValues != nil {
		c.UniqueValues = *in.UniqueValues
	}
	return nil
}

// Statistics maps dataset column names to their statistics.
// A nil *Statistics is valid and yields the fallback defaults.
type Statistics struct {
	Columns map[string]Column
}

func (s *Statistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Columns)
}

func (s *Statistics) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.Columns)
}

// Load reads a statistics sidecar from path.
func Load(path string) (*Statistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics %s: %w", path, err)
	}
	var s Statistics
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidStatistics, path, err)
	}
	for name, col := range s.Columns {
		if col.Type != Numeric && col.Type != Categorical {
			return nil, fmt.Errorf("%w: column %s has type %q", ErrInvalidStatistics, name, col.Type)
		}
	}
	return &s, nil
}

// LoadOrDefault reads the sidecar, returning nil statistics (fallbacks) when
// the file does not exist.
func LoadOrDefault(path string) (*Statistics, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return s, err
}

// Save writes the statistics to path as indented JSON.
func (s *Statistics) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write statistics %s: %w", path, err)
	}
	return nil
}

var fallbackBounds = map[core.Field][2]float64{
	core.FieldPrice:              {0, 95000000},
	core.FieldPricePerSquareFoot: {0, 2100000},
	core.FieldBedrooms:           {0, 99},
	core.FieldBathrooms:          {0, 89},
	core.FieldLivingArea:         {0, 9061351},
}

// Bounds returns the [min, max] range of a numeric field. ok is false when
// neither the sidecar nor the fallbacks know the field.
func (s *Statistics) Bounds(f core.Field) (lo, hi float64, ok bool) {
	if s != nil {
		if col, found := s.Columns[f.String()]; found && col.Type == Numeric && col.Max >= col.Min {
			return col.Min, col.Max, true
		}
	}
	b, found := fallbackBounds[f]
	return b[0], b[1], found
}

// Categories returns the closed value set of a categorical field.
func (s *Statistics) Categories(f core.Field) []string {
	if s != nil {
		if col, found := s.Columns[f.String()]; found && col.Type == Categorical && len(col.UniqueValues) > 0 {
			return slices.Clone(col.UniqueValues)
		}
	}
	return core.DefaultCategories(f)
}

// skipValues lists textual columns whose unique values are not recorded.
var skipValues = map[core.Field]bool{
	core.FieldID:            true,
	core.FieldDatePosted:    true,
	core.FieldStreetAddress: true,
	core.FieldDescription:   true,
}

// Collector accumulates statistics over a stream of records.
// It is not safe for concurrent use.
type Collector struct {
	bounds map[core.Field][2]float64
	values map[core.Field][]string
	seen   map[core.Field]map[string]struct{}
	count  int
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		bounds: make(map[core.Field][2]float64),
		values: make(map[core.Field][]string),
		seen:   make(map[core.Field]map[string]struct{}),
	}
}

// Add folds one record into the statistics.
func (c *Collector) Add(r *core.PropertyRecord) {
	c.count++
	for _, f := range core.Fields() {
		switch {
		case f.Numeric():
			v, ok := r.Number(f)
			if !ok || math.IsNaN(v) {
				continue
			}
			b, found := c.bounds[f]
			if !found {
				c.bounds[f] = [2]float64{v, v}
				continue
			}
			c.bounds[f] = [2]float64{math.Min(b[0], v), math.Max(b[1], v)}
		case f.Textual():
			if _, ok := c.values[f]; !ok {
				c.values[f] = []string{}
			}
			v, ok := r.Text(f)
			if !ok || skipValues[f] {
				continue
			}
			set := c.seen[f]
			if set == nil {
				set = make(map[string]struct{})
				c.seen[f] = set
			}
			if _, dup := set[v]; dup {
				continue
			}
			set[v] = struct{}{}
			c.values[f] = append(c.values[f], v)
		}
	}
}

// Count returns the number of records added.
func (c *Collector) Count() int {
	return c.count
}

// Statistics returns the accumulated statistics. Numeric bounds are widened to
// whole numbers: min rounds down, max rounds up.
func (c *Collector) Statistics() *Statistics {
	s := &Statistics{Columns: make(map[string]Column, len(c.bounds)+len(c.values))}
	for f, b := range c.bounds {
		s.Columns[f.String()] = Column{Type: Numeric, Min: math.Floor(b[0]), Max: math.Ceil(b[1])}
	}
	for f, values := range c.values {
		s.Columns[f.String()] = Column{Type: Categorical, UniqueValues: slices.Clone(values)}
	}
	return s
}

// Generate computes statistics over a slice of records.
func Generate(records []*core.PropertyRecord) *Statistics {
	c := NewCollector()
	for _, r := range records {
		c.Add(r)
	}
	return c.Statistics()
}
