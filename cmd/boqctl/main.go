package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"boq/internal/backend"
	"boq/internal/cli"
	"boq/internal/config"
	"boq/internal/log"
	"boq/internal/services"
)

var (
	dbPath   string
	slot     string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "boqctl",
		Short: "Inspect and edit a bill of quantities from the terminal",
		Long: `boqctl works on the same SQLite slot the boq server uses.

Items are referenced by their id or by the row number shown in "boqctl print".`,
		SilenceUsage: true,
	}
)

func init() {
	cli.LoadEnvFile()
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&slot, "slot", cfg.LedgerSlot, "ledger slot name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(printCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// openLedger loads the slot into a ledger service. Ledger events are
// published when AMQP_URL is set, so a running mirror worker sees edits
// made here.
func openLedger(ctx context.Context) (*services.LedgerService, func(), error) {
	cfg := config.Load()
	logger := cli.SetupLogger(os.Stderr, logLevel, cfg.LogFormat, log.ComponentCLI)

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		Slot:         slot,
		SQLiteDBPath: dbPath,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	if n := len(result.Report.Skipped); n > 0 {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(fmt.Sprintf("skipped %d malformed record(s) in slot %q", n, slot)))
	}

	cleanup := func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}
	return result.Service, cleanup, nil
}
