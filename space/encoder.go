package space

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/core"
)

// Encoder computes composite record vectors. Text fields are embedded with a
// single batched call per EncodeRecords invocation.
type Encoder struct {
	layout   *Layout
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewEncoder creates an encoder for layout using embedder for text spaces.
func NewEncoder(layout *Layout, embedder ai.Embedder) *Encoder {
	return &Encoder{
		layout:   layout,
		embedder: embedder,
		logger:   slog.Default().With("component", "encoder"),
	}
}

// Layout returns the encoder's layout.
func (e *Encoder) Layout() *Layout {
	return e.layout
}

// Embed embeds texts with one batched call. Duplicate texts are embedded once;
// empty texts map to nil. The result is aligned with texts.
func (e *Encoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	positions := make(map[string][]int)
	var unique []string
	for i, t := range texts {
		if t == "" {
			continue
		}
		if _, seen := positions[t]; !seen {
			unique = append(unique, t)
		}
		positions[t] = append(positions[t], i)
	}
	if len(unique) == 0 {
		return out, nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(unique), err)
	}
	if len(vectors) != len(unique) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(unique))
	}
	for i, t := range unique {
		for _, pos := range positions[t] {
			out[pos] = vectors[i]
		}
	}
	return out, nil
}

// EncodeRecords sets the Vector of every record.
func (e *Encoder) EncodeRecords(ctx context.Context, records []*core.PropertyRecord) error {
	var textSpaces []*Space
	for _, s := range e.layout.spaces {
		if s.kind == Text {
			textSpaces = append(textSpaces, s)
		}
	}

	texts := make([]string, 0, len(records)*len(textSpaces))
	for _, r := range records {
		for _, s := range textSpaces {
			t, _ := r.Text(s.field)
			texts = append(texts, t)
		}
	}
	embedded, err := e.Embed(ctx, texts)
	if err != nil {
		return err
	}

	for i, r := range records {
		parts := make(map[core.Field][]float32, len(e.layout.spaces))
		for j, s := range textSpaces {
			seg, err := s.EncodeText(embedded[i*len(textSpaces)+j])
			if err != nil {
				return fmt.Errorf("record %s: %w", r.ID, err)
			}
			parts[s.field] = seg
		}
		for _, s := range e.layout.spaces {
			switch s.kind {
			case Number:
				if x, ok := r.Number(s.field); ok {
					parts[s.field] = s.EncodeNumber(x)
				}
			case Categorical:
				if v, ok := r.Text(s.field); ok {
					parts[s.field] = s.EncodeCategories(v)
				}
			}
		}
		vec, err := e.layout.Compose(parts, unitWeights(e.layout))
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		r.Vector = vec
	}

	e.logger.Debug("encoded records", "count", len(records), "texts", len(texts))
	return nil
}

// EncodeRecord sets the Vector of a single record.
func (e *Encoder) EncodeRecord(ctx context.Context, r *core.PropertyRecord) error {
	return e.EncodeRecords(ctx, []*core.PropertyRecord{r})
}

func unitWeights(l *Layout) map[core.Field]float32 {
	w := make(map[core.Field]float32, len(l.spaces))
	for _, s := range l.spaces {
		w[s.field] = 1
	}
	return w
}
