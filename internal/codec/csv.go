package codec

import (
	"bytes"
	"strconv"
	"strings"

	"boq/internal/core"
)

const (
	// CSVHeader is the fixed header row (sequence, category, description,
	// quantity, unit, unit price, total).
	CSVHeader = "ลำดับ,หมวดหมู่,รายการ,ปริมาณ,หน่วย,ราคาต่อหน่วย,ราคารวม"

	utf8BOM = "\uFEFF"
)

// ToCSV renders one row per item, prefixed by a UTF-8 byte-order mark and
// the fixed header. Every field except the sequence number is quoted.
// Numbers are written as plain numbers rounded to three decimals, never
// grouped.
func ToCSV(s core.Snapshot) []byte {
	totals := core.Recalc(s)

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	buf.WriteString(CSVHeader)
	buf.WriteByte('\n')

	for _, c := range s.Categories {
		for _, it := range c.Items {
			fields := []string{
				strconv.Itoa(totals.Sequence[it.ID]),
				quote(c.Name),
				quote(it.Description),
				quote(csvNumber(it.Quantity)),
				quote(it.Unit),
				quote(csvNumber(it.UnitPrice)),
				quote(csvNumber(it.LineTotal())),
			}
			buf.WriteString(strings.Join(fields, ","))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func csvNumber(v float64) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return core.FormatNumber(v)
	}
	return core.FormatNumber(rounded)
}
