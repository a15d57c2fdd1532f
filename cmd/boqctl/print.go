package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"boq/internal/codec"
	"boq/internal/core"
)

func printCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the ledger with subtotals and grand total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return renderLedger(cmd.OutOrStdout(), svc.View())
		},
	}
}

// renderLedger writes one line per category header and item. The first
// column is the row number item commands accept.
func renderLedger(out io.Writer, v core.LedgerView) error {
	if v.ItemCount == 0 {
		_, err := fmt.Fprintln(out, SubtleStyle.Render("The ledger is empty. Use 'boqctl add' to create an item."))
		return err
	}

	if _, err := fmt.Fprintln(out, TitleStyle.Render("Bill of Quantities")); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := strings.Split(codec.CSVHeader, ",")
	fmt.Fprintf(w, "#\t%s\t%s\t%s\t%s\t%s\t%s\t\n", header[0], header[2], header[3], header[4], header[5], header[6])
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
		strings.Repeat("-", 3),
		strings.Repeat("-", 5),
		strings.Repeat("-", 30),
		strings.Repeat("-", 10),
		strings.Repeat("-", 6),
		strings.Repeat("-", 12),
		strings.Repeat("-", 14))

	for _, c := range v.Categories {
		fmt.Fprintf(w, "\t\t%s\t\t\t\t%s\t\n", CategoryStyle.Render(c.Name), c.SubtotalText)
		for _, it := range c.Items {
			desc := it.Description
			if it.QuantityDetail != "" {
				desc += " " + SubtleStyle.Render(it.QuantityDetail)
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
				it.Position+1,
				it.SequenceNumber,
				desc,
				it.QuantityText,
				it.Unit,
				it.UnitPriceText,
				it.LineTotalText)
		}
	}
	fmt.Fprintf(w, "\t\t%s\t\t\t\t%s\t\n", CategoryStyle.Render(codec.GrandTotalLabel), v.GrandTotalText)
	return w.Flush()
}
