package query

import (
	"cmp"
	"slices"

	"github.com/poiesic/homesearch/core"
)

// CompileFilters turns parameters into hard predicates combined with AND.
// Unset parameters contribute nothing. The result is ordered cheapest first
// (see core.Predicate.Cost) and then by field and operator, so it does not
// depend on the order parameters were given in.
func CompileFilters(p *Parameters) []core.Predicate {
	if p == nil {
		return nil
	}
	var preds []core.Predicate

	if len(p.idsInclude) > 0 {
		preds = append(preds, core.In(core.FieldID, p.idsInclude...))
	}
	if len(p.idsExclude) > 0 {
		preds = append(preds, core.NotIn(core.FieldID, p.idsExclude...))
	}

	for f, values := range p.sets {
		preds = append(preds, core.In(f, values...))
	}

	for f, value := range p.flags {
		n := 0.0
		if value {
			n = 1
		}
		preds = append(preds, core.Equals(f, n))
	}

	for f, r := range p.ranges {
		if r.HasMin {
			preds = append(preds, core.AtLeast(f, r.Min))
		}
		if r.HasMax {
			preds = append(preds, core.AtMost(f, r.Max))
		}
	}

	if p.near != nil {
		preds = append(preds, core.WithinRadius(p.near.Latitude, p.near.Longitude, p.near.RadiusKm))
	}

	slices.SortFunc(preds, comparePredicates)
	return preds
}

func comparePredicates(a, b core.Predicate) int {
	return cmp.Or(
		cmp.Compare(a.Cost(), b.Cost()),
		cmp.Compare(a.Field, b.Field),
		cmp.Compare(a.Op, b.Op),
	)
}
