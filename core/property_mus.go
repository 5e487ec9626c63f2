package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// PropertyRecordMUS serializes PropertyRecord values in MUS format.
//
// Layout: every textual field in declaration order as an ord string, then every
// nullable numeric field as a presence byte followed by its value (raw float64 for
// float fields, varint int64 otherwise), then the vector as a varint length and
// raw float32 elements.
var PropertyRecordMUS = propertyRecordMUS{}

type propertyRecordMUS struct{}

var (
	musTextFields  = textFields()
	musFloatFields = []Field{FieldPrice, FieldPricePerSquareFoot, FieldLatitude, FieldLongitude}
	musIntFields   = intFields()
)

func textFields() []Field {
	var out []Field
	for _, f := range Fields() {
		if f.Textual() {
			out = append(out, f)
		}
	}
	return out
}

func intFields() []Field {
	var out []Field
	for _, f := range Fields() {
		switch f.Kind() {
		case KindInteger, KindFlag, KindTimestamp:
			out = append(out, f)
		}
	}
	return out
}

func (s propertyRecordMUS) Marshal(r PropertyRecord, bs []byte) (n int) {
	for _, f := range musTextFields {
		n += ord.String.Marshal(*r.textRef(f), bs[n:])
	}
	for _, f := range musFloatFields {
		p := *r.floatRef(f)
		n += ord.Bool.Marshal(p != nil, bs[n:])
		if p != nil {
			n += raw.Float64.Marshal(*p, bs[n:])
		}
	}
	for _, f := range musIntFields {
		p := *r.intRef(f)
		n += ord.Bool.Marshal(p != nil, bs[n:])
		if p != nil {
			n += varint.Int64.Marshal(*p, bs[n:])
		}
	}
	n += varint.Int.Marshal(len(r.Vector), bs[n:])
	for _, v := range r.Vector {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func (s propertyRecordMUS) Unmarshal(bs []byte) (r PropertyRecord, n int, err error) {
	var m int
	for _, f := range musTextFields {
		var str string
		str, m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
		*r.textRef(f) = str
	}
	for _, f := range musFloatFields {
		var present bool
		present, m, err = ord.Bool.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
		if !present {
			continue
		}
		var v float64
		v, m, err = raw.Float64.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
		*r.floatRef(f) = &v
	}
	for _, f := range musIntFields {
		var present bool
		present, m, err = ord.Bool.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
		if !present {
			continue
		}
		var v int64
		v, m, err = varint.Int64.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
		*r.intRef(f) = &v
	}
	var length int
	length, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if length > 0 {
		r.Vector = make([]float32, length)
		for i := range r.Vector {
			r.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return
			}
		}
	}
	return
}

func (s propertyRecordMUS) Size(r PropertyRecord) (size int) {
	for _, f := range musTextFields {
		size += ord.String.Size(*r.textRef(f))
	}
	for _, f := range musFloatFields {
		p := *r.floatRef(f)
		size += ord.Bool.Size(p != nil)
		if p != nil {
			size += raw.Float64.Size(*p)
		}
	}
	for _, f := range musIntFields {
		p := *r.intRef(f)
		size += ord.Bool.Size(p != nil)
		if p != nil {
			size += varint.Int64.Size(*p)
		}
	}
	size += varint.Int.Size(len(r.Vector))
	for _, v := range r.Vector {
		size += raw.Float32.Size(v)
	}
	return size
}
