package core

// CategoryTotal is the raw subtotal of one category.
type CategoryTotal struct {
	Name     string
	Subtotal float64
}

// Totals is the result of a recalculation pass.
type Totals struct {
	Subtotals  []CategoryTotal
	GrandTotal float64
	Sequence   map[ItemID]int
}

// Recalc derives sequence numbers, category subtotals and the grand total
// from a snapshot in a single pass. Sums are raw; rounding happens only
// when a value is formatted.
func Recalc(s Snapshot) Totals {
	t := Totals{
		Subtotals: make([]CategoryTotal, 0, len(s.Categories)),
		Sequence:  make(map[ItemID]int, s.Len()),
	}
	for _, c := range s.Categories {
		seq := 0
		subtotal := 0.0
		for _, it := range c.Items {
			seq++
			t.Sequence[it.ID] = seq
			subtotal += it.LineTotal()
		}
		t.Subtotals = append(t.Subtotals, CategoryTotal{Name: c.Name, Subtotal: subtotal})
		t.GrandTotal += subtotal
	}
	return t
}

// Subtotal returns the subtotal of the named category and whether it exists.
func (t Totals) Subtotal(name string) (float64, bool) {
	for _, c := range t.Subtotals {
		if c.Name == name {
			return c.Subtotal, true
		}
	}
	return 0, false
}

// LedgerView is the render-ready snapshot handed to presentation adapters.
type LedgerView struct {
	Categories     []CategoryView `json:"categories"`
	GrandTotal     float64        `json:"grandTotal"`
	GrandTotalText string         `json:"grandTotalText"`
	ItemCount      int            `json:"itemCount"`
}

type CategoryView struct {
	Name         string     `json:"name"`
	Subtotal     float64    `json:"subtotal"`
	SubtotalText string     `json:"subtotalText"`
	Items        []ItemView `json:"items"`
}

type ItemView struct {
	ID             ItemID  `json:"id"`
	Position       int     `json:"position"`
	SequenceNumber int     `json:"sequenceNumber"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	QuantityText   string  `json:"quantityText"`
	QuantityDetail string  `json:"quantityDetail"`
	Unit           string  `json:"unit"`
	UnitPrice      float64 `json:"unitPrice"`
	UnitPriceText  string  `json:"unitPriceText"`
	LineTotal      float64 `json:"lineTotal"`
	LineTotalText  string  `json:"lineTotalText"`
}

// View runs Recalc and pairs every raw value with its display text.
func View(s Snapshot) LedgerView {
	t := Recalc(s)
	v := LedgerView{
		Categories:     make([]CategoryView, 0, len(s.Categories)),
		GrandTotal:     t.GrandTotal,
		GrandTotalText: FormatAmount(t.GrandTotal),
		ItemCount:      s.Len(),
	}
	pos := 0
	for i, c := range s.Categories {
		cv := CategoryView{
			Name:         c.Name,
			Subtotal:     t.Subtotals[i].Subtotal,
			SubtotalText: FormatAmount(t.Subtotals[i].Subtotal),
			Items:        make([]ItemView, 0, len(c.Items)),
		}
		for _, it := range c.Items {
			total := it.LineTotal()
			cv.Items = append(cv.Items, ItemView{
				ID:             it.ID,
				Position:       pos,
				SequenceNumber: t.Sequence[it.ID],
				Category:       it.Category,
				Description:    it.Description,
				Quantity:       it.Quantity,
				QuantityText:   FormatQuantityColumn(it.Quantity),
				QuantityDetail: it.QuantityDetail,
				Unit:           it.Unit,
				UnitPrice:      it.UnitPrice,
				UnitPriceText:  FormatAmount(it.UnitPrice),
				LineTotal:      total,
				LineTotalText:  FormatAmount(total),
			})
			pos++
		}
		v.Categories = append(v.Categories, cv)
	}
	return v
}
