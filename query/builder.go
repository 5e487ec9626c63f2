package query

import (
	"context"
	"fmt"
	"maps"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/normalize"
	"github.com/poiesic/homesearch/space"
)

// Builder turns parameters into a single weighted composite query.
// It is safe for concurrent use.
type Builder struct {
	encoder  *space.Encoder
	defaults map[core.Field]float32
}

// NewBuilder creates a builder over the encoder's layout using the default weights.
func NewBuilder(encoder *space.Encoder) *Builder {
	return NewBuilderWithWeights(encoder, space.DefaultWeights())
}

// NewBuilderWithWeights creates a builder with custom default weights.
// Fields missing from defaults weigh nothing unless a request overrides them.
func NewBuilderWithWeights(encoder *space.Encoder, defaults map[core.Field]float32) *Builder {
	return &Builder{encoder: encoder, defaults: maps.Clone(defaults)}
}

// Layout returns the layout queries are built for.
func (b *Builder) Layout() *space.Layout {
	return b.encoder.Layout()
}

// Weights returns the effective weights for p: defaults overlaid with the
// request's overrides.
func (b *Builder) Weights(p *Parameters) map[core.Field]float32 {
	w := maps.Clone(b.defaults)
	if w == nil {
		w = make(map[core.Field]float32)
	}
	if p != nil {
		maps.Copy(w, p.weights)
	}
	return w
}

// Build embeds the text seeds of p (one batched embedder call), encodes the
// number and category seeds, applies the weights and attaches the compiled
// filters and limit.
func (b *Builder) Build(ctx context.Context, p *Parameters) (*core.CompositeQuery, error) {
	if p == nil {
		p = newParameters()
	}
	layout := b.encoder.Layout()
	spaces := layout.Spaces()

	var textFields []core.Field
	var texts []string
	for _, s := range spaces {
		if s.Kind() != space.Text {
			continue
		}
		seed, _ := p.TextSeed(s.Field())
		textFields = append(textFields, s.Field())
		texts = append(texts, seed)
	}
	embedded, err := b.encoder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	parts := make(map[core.Field][]float32, len(spaces))
	for i, f := range textFields {
		s, _ := layout.Space(f)
		seg, err := s.EncodeText(embedded[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s seed: %w", f, err)
		}
		parts[f] = seg
	}
	for _, s := range spaces {
		switch s.Kind() {
		case space.Number:
			seed, seeded := p.NumberSeed(s.Field())
			parts[s.Field()] = s.QueryNumber(seed, seeded)
		case space.Categorical:
			parts[s.Field()] = s.EncodeCategories(p.CategorySeed(s.Field())...)
		}
	}

	weights := b.Weights(p)
	vec, err := layout.Compose(parts, weights)
	if err != nil {
		return nil, err
	}

	return &core.CompositeQuery{
		Vector:   vec,
		Segments: layout.Segments(),
		Weights:  weights,
		Filters:  CompileFilters(p),
		Limit:    p.Limit(),
	}, nil
}

// BuildSimilar builds a query from a stored record vector instead of seeds:
// every segment of the anchor is scaled by its weight. Filters and limit come
// from p; the anchor itself is excluded.
func (b *Builder) BuildSimilar(p *Parameters, anchorID string, anchor []float32) (*core.CompositeQuery, error) {
	if p == nil {
		p = newParameters()
	}
	layout := b.encoder.Layout()
	weights := b.Weights(p)
	vec, err := layout.Reweight(anchor, weights)
	if err != nil {
		return nil, fmt.Errorf("anchor %s: %w", anchorID, err)
	}

	scoped := p.clone()
	if anchorID != "" {
		scoped.idsExclude = normalize.DedupeExact(append(scoped.idsExclude, anchorID))
	}

	return &core.CompositeQuery{
		Vector:   vec,
		Segments: layout.Segments(),
		Weights:  weights,
		Filters:  CompileFilters(scoped),
		Limit:    p.Limit(),
	}, nil
}
