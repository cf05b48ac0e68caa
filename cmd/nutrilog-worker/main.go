package main

import (
	"context"
	"errors"
	"os"
	"time"

	"nutrilog/internal/amqp"
	"nutrilog/internal/cli"
	gmirror "nutrilog/internal/mirror/google"
	memmirror "nutrilog/internal/mirror/memory"
	"nutrilog/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting nutrilog-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Google Sheets mirror is optional; without it entries are mirrored to
	// an in-memory store so the sync pipeline still drains its queues.
	var syncWorker *worker.SyncWorker
	if cfg.GoogleSpreadsheetID != "" {
		mirror, err := gmirror.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		syncWorker = worker.NewSyncWorker(repo, mirror, mirror, cfg.SyncBatchSize)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
		mirror := memmirror.New()
		syncWorker = worker.NewSyncWorker(repo, mirror, mirror, cfg.SyncBatchSize)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPDeleteQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Sync worker running", "poll_interval", cfg.SyncInterval, "batch_size", cfg.SyncBatchSize)
	if err := syncWorker.Run(ctx, amqpClient, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
