package core

import (
	"fmt"
	"sort"
)

// Segment locates one similarity field inside a composite vector.
type Segment struct {
	Field  Field
	Offset int
	Dim    int
}

// CompositeQuery is a single weighted multi-space similarity request.
// Vector already carries the per-field weights, so the dot product of Vector
// and a record vector is the weighted sum of per-field similarities.
type CompositeQuery struct {
	Vector   []float32
	Segments []Segment
	Weights  map[Field]float32
	Filters  []Predicate
	Limit    int
}

// Dim returns the expected vector dimension.
func (q *CompositeQuery) Dim() int {
	return len(q.Vector)
}

// Score computes the total score of a record vector against the query and the
// contribution of each segment.
func (q *CompositeQuery) Score(vec []float32) (float32, map[Field]float32, error) {
	if len(vec) != len(q.Vector) {
		return 0, nil, fmt.Errorf("%w: query %d, record %d", ErrDimensionMismatch, len(q.Vector), len(vec))
	}
	breakdown := make(map[Field]float32, len(q.Segments))
	var total float32
	for _, seg := range q.Segments {
		var s float32
		end := seg.Offset + seg.Dim
		for i := seg.Offset; i < end; i++ {
			s += q.Vector[i] * vec[i]
		}
		breakdown[seg.Field] = s
		total += s
	}
	return total, breakdown, nil
}

// Matches reports whether the record passes every filter.
func (q *CompositeQuery) Matches(r *PropertyRecord) bool {
	return MatchesAll(q.Filters, r)
}

// RankResults sorts results by descending score, breaking ties by listing id,
// and truncates to limit. A non-positive limit keeps everything.
func RankResults(results []SearchResult, limit int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
