package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cli"
	"dompet/internal/config"
	ports "dompet/internal/sheets"
	gsheet "dompet/internal/sheets/google"
	mem "dompet/internal/sheets/memory"
	"dompet/internal/worker"
)

func main() {
	backfillUser := flag.String("backfill", "", "write every transaction of this user to the ledger and exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting dompet-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	backendResult := cli.OpenBackend(context.Background(), logger, cfg)
	defer func() {
		if backendResult.Cleanup != nil {
			_ = backendResult.Cleanup()
		}
	}()

	var ledger ports.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		ledger = mem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring the ledger in memory only")
	}

	syncWorker := worker.NewSyncWorker(backendResult.Store, ledger, logger)

	if *backfillUser != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		synced, err := syncWorker.Backfill(ctx, *backfillUser)
		if err != nil {
			logger.Error("Backfill failed", "error", err, "user_id", *backfillUser, "synced", synced)
			os.Exit(1)
		}
		return
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
	})

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.Consume(ctx, syncWorker.HandleEvent)
	}()
	logger.Info("Consuming transaction events", "queue", cfg.AMQPQueue)

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
