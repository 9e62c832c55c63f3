package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledgerdesk/internal/amqp"
	"ledgerdesk/internal/config"
	"ledgerdesk/internal/console"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/sheets"
	"ledgerdesk/internal/storage"
	"ledgerdesk/internal/store"
	"ledgerdesk/internal/store/memory"
	"ledgerdesk/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.ComponentWorker, slog.LevelInfo)
	log.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	var dataStore store.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.New(cfg.SQLiteDBPath, logger)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		dataStore = sqliteStore
	default:
		dataStore = memory.New()
		logger.Warn("Memory backend selected - exports will be empty without seeded data")
	}

	con := console.New(dataStore, logger)
	con.Engine().ScanCap = cfg.ScanCap

	fileTarget, err := worker.NewFileTarget(cfg.ExportDir)
	if err != nil {
		logger.Error("Failed to prepare export directory", log.FieldError, err, "dir", cfg.ExportDir)
		os.Exit(1)
	}
	targets := []worker.Deliverer{fileTarget}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.GoogleSpreadsheetID != "" {
		sheetTarget, err := sheets.NewFromEnv(ctx, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets target", log.FieldError, err)
			os.Exit(1)
		}
		targets = append(targets, sheetTarget)
		logger.Info("Google Sheets delivery enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets delivery disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewExportWorker(con, logger, targets...)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	err = amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger, w.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Job consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
