package main

import (
	"os"
	"time"

	"boq/internal/amqp"
	"boq/internal/cli"
	"boq/internal/log"
	gsheet "boq/internal/sheets/google"
	"boq/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	logger.Info("Starting boq-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Mirror configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// The worker reads the slot the server writes.
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := sqliteRepo.Close(); err != nil {
			logger.Error("Failed to close SQLite repository", log.FieldError, err)
		}
	})

	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	// Without a broker the poll loop alone keeps the mirror current.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, polling only", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			consumer = amqpClient
		}
	} else {
		logger.Info("AMQP disabled - polling only", "interval", cfg.SyncInterval.String())
	}

	mirrorWorker := worker.NewMirrorWorker(sqliteRepo, sheetsClient, cfg.LedgerSlot, cfg.SyncInterval, logger)
	if err := mirrorWorker.Run(ctx, consumer); err != nil {
		logger.Error("Mirror worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("boq-worker stopped gracefully", log.FieldRevision, mirrorWorker.Mirrored())
}
