package query

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/normalize"
)

const (
	// DefaultLimit is the number of results returned when no limit is given.
	DefaultLimit = 10

	// MaxLimit caps the number of results of a single request.
	MaxLimit = 100
)

// Fields grouped by the parameters they accept.
var (
	rangeFields = []core.Field{
		core.FieldPrice, core.FieldPricePerSquareFoot, core.FieldBedrooms, core.FieldBathrooms, core.FieldLivingArea,
	}
	setFields = []core.Field{
		core.FieldState, core.FieldCity, core.FieldCounty, core.FieldHomeType, core.FieldEvent, core.FieldLevels,
	}
	textSeedFields = []core.Field{
		core.FieldDescription, core.FieldCity, core.FieldStreetAddress, core.FieldCounty,
	}
	categorySeedFields = []core.Field{
		core.FieldHomeType, core.FieldEvent, core.FieldLevels,
	}
	weightFields = []core.Field{
		core.FieldDescription, core.FieldCity, core.FieldHomeType, core.FieldStreetAddress, core.FieldCounty,
		core.FieldPrice, core.FieldPricePerSquareFoot, core.FieldLivingArea, core.FieldEvent, core.FieldLevels,
		core.FieldBedrooms, core.FieldBathrooms,
	}
)

// quantities maps range fields to the units their phrases are read in.
var quantities = map[core.Field]normalize.Quantity{
	core.FieldPrice:              normalize.Money,
	core.FieldPricePerSquareFoot: normalize.PricePerArea,
	core.FieldBedrooms:           normalize.Count,
	core.FieldBathrooms:          normalize.Count,
	core.FieldLivingArea:         normalize.Area,
}

// Parameters is the canonical, validated form of one search request.
// It is immutable; build it with a ParametersBuilder, Resolve or Merge.
type Parameters struct {
	ranges        map[core.Field]normalize.Range
	sets          map[core.Field][]string
	idsInclude    []string
	idsExclude    []string
	flags         map[core.Field]bool
	near          *core.GeoRadius
	textSeeds     map[core.Field]string
	categorySeeds map[core.Field][]string
	weights       map[core.Field]float32
	limit         int
}

func newParameters() *Parameters {
	return &Parameters{
		ranges:        make(map[core.Field]normalize.Range),
		sets:          make(map[core.Field][]string),
		flags:         make(map[core.Field]bool),
		textSeeds:     make(map[core.Field]string),
		categorySeeds: make(map[core.Field][]string),
		weights:       make(map[core.Field]float32),
	}
}

// Range returns the numeric bounds requested for f.
func (p *Parameters) Range(f core.Field) (normalize.Range, bool) {
	r, ok := p.ranges[f]
	return r, ok
}

// NumberSeed returns the exact value requested for f, if the request pins one.
func (p *Parameters) NumberSeed(f core.Field) (float64, bool) {
	r, ok := p.ranges[f]
	if !ok || !r.IsExact() {
		return 0, false
	}
	return r.Min, true
}

// Set returns the allowed values for a set filter, in first-mention order.
func (p *Parameters) Set(f core.Field) []string {
	return slices.Clone(p.sets[f])
}

// IDsInclude returns the listing ids the result is restricted to.
func (p *Parameters) IDsInclude() []string { return slices.Clone(p.idsInclude) }

// IDsExclude returns the listing ids removed from the result.
func (p *Parameters) IDsExclude() []string { return slices.Clone(p.idsExclude) }

// Flag returns the required value of a 0/1 flag.
func (p *Parameters) Flag(f core.Field) (value bool, ok bool) {
	value, ok = p.flags[f]
	return value, ok
}

// Near returns the geo radius filter.
func (p *Parameters) Near() (core.GeoRadius, bool) {
	if p.near == nil {
		return core.GeoRadius{}, false
	}
	return *p.near, true
}

// TextSeed returns the text similarity seed for f.
func (p *Parameters) TextSeed(f core.Field) (string, bool) {
	s, ok := p.textSeeds[f]
	return s, ok
}

// CategorySeed returns the categorical similarity seed for f.
func (p *Parameters) CategorySeed(f core.Field) []string {
	return slices.Clone(p.categorySeeds[f])
}

// Weight returns the weight override for f.
func (p *Parameters) Weight(f core.Field) (float32, bool) {
	w, ok := p.weights[f]
	return w, ok
}

// Weights returns a copy of the weight overrides.
func (p *Parameters) Weights() map[core.Field]float32 {
	return maps.Clone(p.weights)
}

// Limit returns the requested number of results, DefaultLimit when unset.
func (p *Parameters) Limit() int {
	if p.limit == 0 {
		return DefaultLimit
	}
	return p.limit
}

// HasLimit reports whether the limit was given explicitly.
func (p *Parameters) HasLimit() bool {
	return p.limit != 0
}

// Empty reports whether nothing but defaults is set.
func (p *Parameters) Empty() bool {
	return len(p.ranges) == 0 && len(p.sets) == 0 && len(p.idsInclude) == 0 && len(p.idsExclude) == 0 &&
		len(p.flags) == 0 && p.near == nil && len(p.textSeeds) == 0 && len(p.categorySeeds) == 0 &&
		len(p.weights) == 0 && p.limit == 0
}

// Merge combines two parameter sets field by field: every field set in
// primary is taken from primary, the rest from secondary. Structured request
// parameters are passed as primary so they win over extracted ones.
func Merge(primary, secondary *Parameters) *Parameters {
	switch {
	case primary == nil && secondary == nil:
		return newParameters()
	case primary == nil:
		return secondary.clone()
	case secondary == nil:
		return primary.clone()
	}

	out := secondary.clone()
	maps.Copy(out.ranges, primary.ranges)
	for f, v := range primary.sets {
		out.sets[f] = slices.Clone(v)
	}
	if len(primary.idsInclude) > 0 {
		out.idsInclude = slices.Clone(primary.idsInclude)
	}
	if len(primary.idsExclude) > 0 {
		out.idsExclude = slices.Clone(primary.idsExclude)
	}
	maps.Copy(out.flags, primary.flags)
	if primary.near != nil {
		n := *primary.near
		out.near = &n
	}
	maps.Copy(out.textSeeds, primary.textSeeds)
	for f, v := range primary.categorySeeds {
		out.categorySeeds[f] = slices.Clone(v)
	}
	maps.Copy(out.weights, primary.weights)
	if primary.limit != 0 {
		out.limit = primary.limit
	}
	return out
}

func (p *Parameters) clone() *Parameters {
	c := newParameters()
	maps.Copy(c.ranges, p.ranges)
	for f, v := range p.sets {
		c.sets[f] = slices.Clone(v)
	}
	c.idsInclude = slices.Clone(p.idsInclude)
	c.idsExclude = slices.Clone(p.idsExclude)
	maps.Copy(c.flags, p.flags)
	if p.near != nil {
		n := *p.near
		c.near = &n
	}
	maps.Copy(c.textSeeds, p.textSeeds)
	for f, v := range p.categorySeeds {
		c.categorySeeds[f] = slices.Clone(v)
	}
	maps.Copy(c.weights, p.weights)
	c.limit = p.limit
	return c
}

// ParametersBuilder assembles a Parameters value. Each setter validates its
// input; Build reports every rejected call.
type ParametersBuilder struct {
	p    *Parameters
	errs []error
}

// NewParametersBuilder returns an empty builder.
func NewParametersBuilder() *ParametersBuilder {
	return &ParametersBuilder{p: newParameters()}
}

func (b *ParametersBuilder) fail(err error) *ParametersBuilder {
	b.errs = append(b.errs, err)
	return b
}

// Range sets the numeric bounds of f. Bounds must be non-negative and ordered.
func (b *ParametersBuilder) Range(f core.Field, r normalize.Range) *ParametersBuilder {
	if !slices.Contains(rangeFields, f) {
		return b.fail(fmt.Errorf("%w: %s has no range", ErrUnsupportedField, f))
	}
	if r.Empty() {
		delete(b.p.ranges, f)
		return b
	}
	if (r.HasMin && (r.Min < 0 || math.IsNaN(r.Min) || math.IsInf(r.Min, 0))) ||
		(r.HasMax && (r.Max < 0 || math.IsNaN(r.Max) || math.IsInf(r.Max, 0))) {
		return b.fail(fmt.Errorf("%w: %s bounds must be non-negative numbers, got %s", ErrInvalidValue, f, r))
	}
	if r.HasMin && r.HasMax && r.Min > r.Max {
		return b.fail(fmt.Errorf("%w: %s minimum %g exceeds maximum %g", ErrInvalidValue, f, r.Min, r.Max))
	}
	b.p.ranges[f] = r
	return b
}

// Set restricts f to values. Values are deduplicated case-insensitively in
// first-mention order; an empty list clears the filter.
func (b *ParametersBuilder) Set(f core.Field, values ...string) *ParametersBuilder {
	if !slices.Contains(setFields, f) {
		return b.fail(fmt.Errorf("%w: %s has no set filter", ErrUnsupportedField, f))
	}
	values = normalize.Dedupe(values)
	if len(values) == 0 {
		delete(b.p.sets, f)
		return b
	}
	b.p.sets[f] = values
	return b
}

// IncludeIDs restricts the result to the given listing ids. Ids are case sensitive.
func (b *ParametersBuilder) IncludeIDs(ids ...string) *ParametersBuilder {
	b.p.idsInclude = normalize.DedupeExact(append(b.p.idsInclude, ids...))
	return b
}

// ExcludeIDs removes the given listing ids from the result.
func (b *ParametersBuilder) ExcludeIDs(ids ...string) *ParametersBuilder {
	b.p.idsExclude = normalize.DedupeExact(append(b.p.idsExclude, ids...))
	return b
}

// Flag requires a 0/1 flag to hold value.
func (b *ParametersBuilder) Flag(f core.Field, value bool) *ParametersBuilder {
	if f.Kind() != core.KindFlag {
		return b.fail(fmt.Errorf("%w: %s is not a flag", ErrUnsupportedField, f))
	}
	b.p.flags[f] = value
	return b
}

// Near restricts the result to listings within radiusKm of a point.
func (b *ParametersBuilder) Near(lat, lon, radiusKm float64) *ParametersBuilder {
	if _, err := core.NewPredicate(core.FieldLocation, core.OpWithin, core.GeoRadius{Latitude: lat, Longitude: lon, RadiusKm: radiusKm}); err != nil {
		return b.fail(fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	b.p.near = &core.GeoRadius{Latitude: lat, Longitude: lon, RadiusKm: radiusKm}
	return b
}

// TextSeed sets the text compared against f. Blank text clears the seed.
func (b *ParametersBuilder) TextSeed(f core.Field, text string) *ParametersBuilder {
	if !slices.Contains(textSeedFields, f) {
		return b.fail(fmt.Errorf("%w: %s has no text seed", ErrUnsupportedField, f))
	}
	text = normalize.Place(text)
	if text == "" {
		delete(b.p.textSeeds, f)
		return b
	}
	b.p.textSeeds[f] = text
	return b
}

// CategorySeed sets the categories compared against f.
func (b *ParametersBuilder) CategorySeed(f core.Field, values ...string) *ParametersBuilder {
	if !slices.Contains(categorySeedFields, f) {
		return b.fail(fmt.Errorf("%w: %s has no category seed", ErrUnsupportedField, f))
	}
	values = normalize.Dedupe(values)
	if len(values) == 0 {
		delete(b.p.categorySeeds, f)
		return b
	}
	b.p.categorySeeds[f] = values
	return b
}

// Weight overrides the similarity weight of f.
func (b *ParametersBuilder) Weight(f core.Field, w float32) *ParametersBuilder {
	if !slices.Contains(weightFields, f) {
		return b.fail(fmt.Errorf("%w: %s has no weight", ErrUnsupportedField, f))
	}
	if w < 0 || math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) {
		return b.fail(fmt.Errorf("%w: %s weight %g", ErrInvalidWeight, f, w))
	}
	b.p.weights[f] = w
	return b
}

// Limit sets the number of results. Values above MaxLimit are capped.
func (b *ParametersBuilder) Limit(n int) *ParametersBuilder {
	if n <= 0 {
		return b.fail(fmt.Errorf("%w: %d", ErrInvalidLimit, n))
	}
	b.p.limit = min(n, MaxLimit)
	return b
}

// Build returns the parameters. The error joins every rejected setter call;
// the returned parameters are usable either way and omit the rejected values.
func (b *ParametersBuilder) Build() (*Parameters, error) {
	return b.p.clone(), errors.Join(b.errs...)
}
