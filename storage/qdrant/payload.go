package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/homesearch/core"
)

// Payload keys for the geo point and its coordinates.
const (
	locationKey = "location"
	latKey      = "lat"
	lonKey      = "lon"
)

// pointID maps a listing id onto a numeric point id.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDNum(uint64(core.IDFromContent(id)))
}

// toPayload mirrors the record's fields under their dataset column names.
// Absent values are omitted. Coordinates are also stored as a geo point.
func toPayload(r *core.PropertyRecord) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value)
	for _, f := range core.Fields() {
		switch {
		case f.Textual():
			if s, ok := r.Text(f); ok {
				payload[f.String()] = qdrant.NewValueString(s)
			}
		case f.Numeric():
			n, ok := r.Number(f)
			if !ok {
				continue
			}
			if f.Kind() == core.KindFloat || f.Kind() == core.KindCoordinate {
				payload[f.String()] = qdrant.NewValueDouble(n)
			} else {
				payload[f.String()] = qdrant.NewValueInt(int64(n))
			}
		}
	}
	if lat, lon, ok := r.Location(); ok {
		payload[locationKey] = qdrant.NewValueFromFields(map[string]*qdrant.Value{
			latKey: qdrant.NewValueDouble(lat),
			lonKey: qdrant.NewValueDouble(lon),
		})
	}
	return payload
}

// fromPayload rebuilds a record from a point payload and vector.
func fromPayload(payload map[string]*qdrant.Value, vector []float32) (*core.PropertyRecord, error) {
	r := &core.PropertyRecord{}
	for _, f := range core.Fields() {
		v, ok := payload[f.String()]
		if !ok {
			continue
		}
		switch {
		case f.Textual():
			r.SetText(f, v.GetStringValue())
		case f.Numeric():
			switch k := v.GetKind().(type) {
			case *qdrant.Value_IntegerValue:
				r.SetNumber(f, float64(k.IntegerValue))
			case *qdrant.Value_DoubleValue:
				r.SetNumber(f, k.DoubleValue)
			case *qdrant.Value_NullValue:
			default:
				return nil, fmt.Errorf("payload field %s: unexpected value %T", f, k)
			}
		}
	}
	if r.ID == "" {
		return nil, fmt.Errorf("payload has no %s", core.FieldID)
	}
	if len(vector) > 0 {
		r.Vector = vector
	}
	return r, nil
}

type vectorSource interface {
	GetDense() *qdrant.DenseVector
	GetData() []float32
}

// denseData reads a dense vector, falling back to the deprecated flat data.
func denseData(v vectorSource) []float32 {
	if v == nil {
		return nil
	}
	if d := v.GetDense().GetData(); len(d) > 0 {
		return d
	}
	return v.GetData()
}
