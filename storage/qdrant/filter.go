package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/homesearch/core"
)

// buildFilter translates predicates into a Qdrant filter. NotIn becomes a
// must-not keyword match so records without the field still pass.
func buildFilter(preds []core.Predicate) (*qdrant.Filter, error) {
	if len(preds) == 0 {
		return nil, nil
	}
	filter := &qdrant.Filter{}
	for _, p := range preds {
		key := p.Field.String()
		switch p.Op {
		case core.OpIn:
			filter.Must = append(filter.Must, qdrant.NewMatchKeywords(key, p.Values...))
		case core.OpNotIn:
			filter.MustNot = append(filter.MustNot, qdrant.NewMatchKeywords(key, p.Values...))
		case core.OpEq:
			filter.Must = append(filter.Must, qdrant.NewMatchInt(key, int64(p.Number)))
		case core.OpGte:
			n := p.Number
			filter.Must = append(filter.Must, qdrant.NewRange(key, &qdrant.Range{Gte: &n}))
		case core.OpLte:
			n := p.Number
			filter.Must = append(filter.Must, qdrant.NewRange(key, &qdrant.Range{Lte: &n}))
		case core.OpWithin:
			filter.Must = append(filter.Must, qdrant.NewGeoRadius(locationKey,
				p.Radius.Latitude, p.Radius.Longitude, float32(p.Radius.RadiusKm*1000)))
		default:
			return nil, fmt.Errorf("unsupported predicate %s", p)
		}
	}
	return filter, nil
}
