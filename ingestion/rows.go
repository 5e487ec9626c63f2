package ingestion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/normalize"
)

// Timestamps above this are taken to be in milliseconds.
const millisecondThreshold = 100_000_000_000

// columnAliases maps alternative dataset column names onto field names.
var columnAliases = map[string]core.Field{
	"livingareavalue": core.FieldLivingArea,
	"dateposted":      core.FieldDatePosted,
	"zip":             core.FieldZipcode,
}

// nullTokens are cell values read as absent.
var nullTokens = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "<na>": true, "na": true,
}

// header maps column positions onto fields. Unknown columns are ignored.
type header struct {
	columns map[int]core.Field
}

func newHeader(names []string) (*header, error) {
	h := &header{columns: make(map[int]core.Field, len(names))}
	found := make(map[core.Field]bool)
	for i, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		f, ok := core.FieldByName(name)
		if !ok {
			f, ok = columnAliases[strings.ToLower(name)]
		}
		if !ok || f == core.FieldLocation || found[f] {
			continue
		}
		h.columns[i] = f
		found[f] = true
	}
	for _, f := range []core.Field{core.FieldID, core.FieldDescription} {
		if !found[f] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}
	return h, nil
}

// rowParser turns CSV rows into normalized records.
type rowParser struct {
	header *header
	vocab  *normalize.Vocabulary
}

// parse builds a record from row. repaired reports whether any value had to
// be fixed up; a non-nil error names the reason the row is dropped.
func (p *rowParser) parse(row []string) (r *core.PropertyRecord, repaired bool, reason DropReason, err error) {
	r = &core.PropertyRecord{}
	for i, f := range p.header.columns {
		if i >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[i])
		if nullTokens[strings.ToLower(cell)] {
			continue
		}
		fixed, err := p.set(r, f, cell)
		if err != nil {
			r.Clear(f)
			repaired = true
			continue
		}
		repaired = repaired || fixed
	}
	r.Normalize()

	if r.ID == "" {
		return nil, false, DropMissingID, core.ErrEmptyID
	}
	if r.Description == "" {
		return nil, false, DropEmptyDescription, core.ErrEmptyDescription
	}

	changed, err := core.RepairTimestamps(r)
	if err != nil {
		return nil, false, DropMissingTimestamp, err
	}
	repaired = repaired || changed

	if err := core.ValidatePropertyRecord(r); err != nil {
		return nil, false, DropInvalid, err
	}
	return r, repaired, "", nil
}

// set stores cell into field f. It reports whether the value was adjusted.
func (p *rowParser) set(r *core.PropertyRecord, f core.Field, cell string) (bool, error) {
	switch f.Kind() {
	case core.KindID, core.KindText, core.KindDate:
		if f == core.FieldState {
			if code, ok := p.vocab.State(cell); ok {
				r.SetText(f, code)
				return false, nil
			}
		}
		r.SetText(f, cell)
		return false, nil

	case core.KindCategory:
		var (
			v  string
			ok bool
		)
		switch f {
		case core.FieldHomeType:
			v, ok = p.vocab.HomeType(cell)
		case core.FieldEvent:
			v, ok = p.vocab.Event(cell)
		case core.FieldLevels:
			v, ok = p.vocab.Level(cell)
		}
		if !ok {
			return false, fmt.Errorf("%s: unmapped value %q", f, cell)
		}
		r.SetText(f, v)
		return v != strings.ToLower(cell), nil

	case core.KindFlag:
		switch strings.ToLower(cell) {
		case "true", "yes":
			r.SetNumber(f, 1)
			return false, nil
		case "false", "no":
			r.SetNumber(f, 0)
			return false, nil
		}
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil || (n != 0 && n != 1) {
			return false, fmt.Errorf("%s: invalid flag %q", f, cell)
		}
		r.SetNumber(f, n)
		return false, nil

	case core.KindInteger:
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return false, fmt.Errorf("%s: invalid integer %q", f, cell)
		}
		rounded := math.RoundToEven(n)
		r.SetNumber(f, rounded)
		return rounded != n, nil

	case core.KindTimestamp:
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil || n < 0 {
			return false, fmt.Errorf("%s: invalid timestamp %q", f, cell)
		}
		if n > millisecondThreshold {
			r.SetNumber(f, math.Floor(n/1000))
			return true, nil
		}
		r.SetNumber(f, math.Floor(n))
		return n != math.Floor(n), nil

	case core.KindFloat, core.KindCoordinate:
		n, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return false, fmt.Errorf("%s: invalid number %q", f, cell)
		}
		r.SetNumber(f, n)
		return false, nil
	}
	return false, errors.New("unsupported field")
}
