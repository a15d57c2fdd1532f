package google

import (
	"strings"

	"boq/internal/codec"
	"boq/internal/core"
)

// ledgerRows lays the ledger out like the printed table: header, then per
// category a header row with its subtotal followed by the items, then the
// grand total. Numbers stay numeric so the sheet can sum them.
func ledgerRows(view core.LedgerView) [][]interface{} {
	header := strings.Split(codec.CSVHeader, ",")
	rows := make([][]interface{}, 0, view.ItemCount+len(view.Categories)+2)

	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	rows = append(rows, hdr)

	for _, c := range view.Categories {
		rows = append(rows, []interface{}{"", c.Name, "", "", "", "", c.Subtotal})
		for _, it := range c.Items {
			desc := it.Description
			if it.QuantityDetail != "" {
				desc += " " + it.QuantityDetail
			}
			rows = append(rows, []interface{}{it.SequenceNumber, c.Name, desc, it.Quantity, it.Unit, it.UnitPrice, it.LineTotal})
		}
	}

	rows = append(rows, []interface{}{"", "", codec.GrandTotalLabel, "", "", "", view.GrandTotal})
	return rows
}
