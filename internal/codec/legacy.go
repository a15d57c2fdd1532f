package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"boq/internal/core"
)

// legacyRecord is the slot shape written by the browser-only version of
// the ledger, where numbers were stored as their rendered text.
type legacyRecord struct {
	Category       string `json:"category"`
	Description    string `json:"description"`
	Quantity       string `json:"quantity"`
	QuantityDetail string `json:"quantityDetail"`
	Unit           string `json:"unit"`
	Price          string `json:"price"`
	Total          string `json:"total"`
}

// DecodeLegacyJSON reads a legacy slot value into records. Unreadable
// numbers become out-of-range values, so Deserialize skips that record
// instead of the whole import failing.
func DecodeLegacyJSON(data []byte) ([]Record, error) {
	var legacy []legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy records: %w", err)
	}

	records := make([]Record, 0, len(legacy))
	for _, lr := range legacy {
		qty, _ := core.ParseNumber(lr.Quantity)
		price, err := core.ParseNumber(lr.Price)
		if err != nil {
			price = -1
		}
		records = append(records, Record{
			Category:       strings.TrimSpace(lr.Category),
			Description:    strings.TrimSpace(lr.Description),
			Quantity:       qty,
			QuantityDetail: strings.TrimSpace(lr.QuantityDetail),
			Unit:           strings.TrimSpace(lr.Unit),
			UnitPrice:      price,
			LineTotal:      qty * price,
		})
	}
	return records, nil
}
