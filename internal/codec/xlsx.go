package codec

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"boq/internal/core"
)

// DefaultSheetName names the worksheet when the caller passes none.
const DefaultSheetName = "BOQ"

// GrandTotalLabel marks the grand total row of rendered exports.
const GrandTotalLabel = "รวมทั้งสิ้น"

// ToXLSX renders the ledger as a print-ready workbook: the CSV header row,
// then per category a header row carrying the subtotal followed by its
// items, and a final grand total row. Numbers are stored as numbers and
// displayed with two decimals and grouped thousands.
func ToXLSX(s core.Snapshot, sheet string) ([]byte, error) {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	boldFill, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}
	boldAmount, err := f.NewStyle(&excelize.Style{NumFmt: 4, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	header := strings.Split(CSVHeader, ",")
	row := 1
	if err := setRow(f, sheet, row, toAny(header)); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", boldFill); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	totals := core.Recalc(s)
	for i, c := range s.Categories {
		row++
		if err := setRow(f, sheet, row, []any{nil, c.Name, nil, nil, nil, nil, totals.Subtotals[i].Subtotal}); err != nil {
			return nil, err
		}
		if err := styleRow(f, sheet, row, boldFill, boldAmount); err != nil {
			return nil, err
		}

		for _, it := range c.Items {
			row++
			desc := it.Description
			if it.QuantityDetail != "" {
				desc += " " + it.QuantityDetail
			}
			values := []any{totals.Sequence[it.ID], c.Name, desc, it.Quantity, it.Unit, it.UnitPrice, it.LineTotal()}
			if err := setRow(f, sheet, row, values); err != nil {
				return nil, err
			}
			if err := styleAmounts(f, sheet, row, amount); err != nil {
				return nil, err
			}
		}
	}

	row++
	if err := setRow(f, sheet, row, []any{nil, nil, GrandTotalLabel, nil, nil, nil, totals.GrandTotal}); err != nil {
		return nil, err
	}
	if err := styleRow(f, sheet, row, boldFill, boldAmount); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheet, "B", "C", 32); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "D", "G", 16); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, style, amountStyle int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(7, row)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("style row %d: %w", row, err)
	}
	total, _ := excelize.CoordinatesToCellName(7, row)
	return f.SetCellStyle(sheet, total, total, amountStyle)
}

func styleAmounts(f *excelize.File, sheet string, row, style int) error {
	qty, _ := excelize.CoordinatesToCellName(4, row)
	price, _ := excelize.CoordinatesToCellName(6, row)
	total, _ := excelize.CoordinatesToCellName(7, row)
	if err := f.SetCellStyle(sheet, qty, qty, style); err != nil {
		return fmt.Errorf("style row %d: %w", row, err)
	}
	return f.SetCellStyle(sheet, price, total, style)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
