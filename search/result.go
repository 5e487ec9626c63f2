package search

import (
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/query"
)

// Request is a flat map of request parameters as received from a caller.
// Numeric values may be numbers or phrases such as "under 500k".
type Request map[string]any

// NaturalQuery returns the natural_query value and whether it is a usable string.
func (r Request) NaturalQuery() (string, bool) {
	v, ok := r[query.ParamNaturalQuery]
	if !ok || v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

// Metadata carries the score of a result and its per-field contributions,
// keyed by dataset column name.
type Metadata struct {
	Score         float32            `json:"score"`
	PartialScores map[string]float32 `json:"partial_scores"`
}

// Result is one ranked property.
type Result struct {
	Property *core.PropertyRecord `json:"property"`
	Score    float32              `json:"score"`
	Metadata Metadata             `json:"metadata"`
}

// Response is the answer to a search request.
type Response struct {
	RequestID string             `json:"request_id"`
	Results   []Result           `json:"results"`
	Rejected  []query.FieldError `json:"rejected,omitempty"`
	// Extracted reports whether natural-language parameters were applied.
	Extracted bool `json:"extracted"`
}

// Assemble converts ranked index results into Results, keeping their order.
func Assemble(results []core.SearchResult) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		partial := make(map[string]float32, len(r.Breakdown))
		for f, s := range r.Breakdown {
			partial[f.String()] = s
		}
		out = append(out, Result{
			Property: r.Record,
			Score:    r.Score,
			Metadata: Metadata{Score: r.Score, PartialScores: partial},
		})
	}
	return out
}
