package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"boq/internal/codec"
	"boq/internal/config"
)

func exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger to a CSV or XLSX file",
		Long: `Write the ledger to a CSV or XLSX file. The file is named after
EXPORT_BASE_NAME unless --out is given; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q: must be csv or xlsx", format)
			}

			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var data []byte
			if format == "csv" {
				data, err = svc.ExportCSV()
			} else {
				data, err = svc.ExportXLSX(codec.DefaultSheetName)
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if out == "" {
				out = config.Load().ExportBaseName + "." + format
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(
				fmt.Sprintf("Wrote %s (%s)", out, humanize.Bytes(uint64(len(data))))))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv, xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <EXPORT_BASE_NAME>.<format>)")

	return cmd
}
