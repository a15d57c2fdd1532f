// Package codec converts the ledger to and from its persisted record list,
// and renders it as CSV and XLSX exports.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"boq/internal/core"
)

var (
	ErrMissingField    = errors.New("missing field")
	ErrFieldType       = errors.New("wrong field type")
	ErrMalformedRecord = errors.New("record is not an object")
)

// Record is the persisted form of one item. Category headers are not stored;
// they are rebuilt from the Category field in first-seen order. Numbers are
// raw values so they round-trip exactly.
type Record struct {
	ID             string  `json:"id,omitempty"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	QuantityDetail string  `json:"quantityDetail"`
	Unit           string  `json:"unit"`
	UnitPrice      float64 `json:"unitPrice"`
	LineTotal      float64 `json:"lineTotal"`

	// decodeErr is set by UnmarshalJSON when a field is absent or mistyped.
	decodeErr error
}

// UnmarshalJSON decodes one record field by field. A missing or mistyped
// field does not fail the surrounding list; the record is flagged instead
// and Deserialize skips it.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = Record{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		r.decodeErr = ErrMalformedRecord
		return nil
	}

	fields := []struct {
		key      string
		dst      any
		required bool
	}{
		{"id", &r.ID, false},
		{"category", &r.Category, true},
		{"description", &r.Description, true},
		{"quantity", &r.Quantity, true},
		{"quantityDetail", &r.QuantityDetail, false},
		{"unit", &r.Unit, true},
		{"unitPrice", &r.UnitPrice, true},
		{"lineTotal", &r.LineTotal, false},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || string(v) == "null" {
			if f.required && r.decodeErr == nil {
				r.decodeErr = fmt.Errorf("%w: %s", ErrMissingField, f.key)
			}
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil && r.decodeErr == nil {
			r.decodeErr = fmt.Errorf("%w: %s", ErrFieldType, f.key)
		}
	}
	return nil
}

// Skipped describes a record that could not be loaded.
type Skipped struct {
	Index int
	Err   error
}

func (s Skipped) Error() string {
	return fmt.Sprintf("record %d: %v", s.Index, s.Err)
}

// Report summarizes a Deserialize call.
type Report struct {
	Loaded  int
	Skipped []Skipped
}

// Serialize flattens a snapshot into records in display order.
func Serialize(s core.Snapshot) []Record {
	records := make([]Record, 0, s.Len())
	for _, c := range s.Categories {
		for _, it := range c.Items {
			records = append(records, Record{
				ID:             it.ID.String(),
				Category:       c.Name,
				Description:    it.Description,
				Quantity:       it.Quantity,
				QuantityDetail: it.QuantityDetail,
				Unit:           it.Unit,
				UnitPrice:      it.UnitPrice,
				LineTotal:      it.LineTotal(),
			})
		}
	}
	return records
}

// Deserialize rebuilds a ledger from records. Records that failed to decode
// or fail validation are skipped and reported; loading never aborts. LineTotal is ignored and
// recomputed from quantity and unit price.
func Deserialize(records []Record) (*core.Ledger, Report) {
	l := core.NewLedger()
	var rep Report
	for i, r := range records {
		if r.decodeErr != nil {
			rep.Skipped = append(rep.Skipped, Skipped{Index: i, Err: r.decodeErr})
			continue
		}
		id, _ := core.ParseItemID(r.ID)
		_, err := l.RestoreItem(id, core.NewItem{
			Category:       r.Category,
			Description:    r.Description,
			Unit:           r.Unit,
			UnitPrice:      r.UnitPrice,
			Quantity:       r.Quantity,
			QuantityDetail: r.QuantityDetail,
		})
		if err != nil {
			rep.Skipped = append(rep.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		rep.Loaded++
	}
	return l, rep
}
