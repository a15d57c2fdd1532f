package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boq/internal/codec"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <legacy.json>",
		Short: "Append the items of a browser-saved ledger",
		Long: `Append the items of a ledger saved by the browser page (the JSON
array kept in local storage) after the current items. Rows that fail
validation are skipped and listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			records, err := codec.DecodeLegacyJSON(data)
			if err != nil {
				return err
			}

			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := svc.ImportRecords(cmd.Context(), records)
			if err != nil {
				return err
			}
			for _, sk := range rep.Skipped {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("skipped "+sk.Error()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(
				fmt.Sprintf("Imported %d item(s), skipped %d", rep.Loaded, len(rep.Skipped))))
			return nil
		},
	}
}
