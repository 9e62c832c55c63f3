package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerdesk/internal/amqp"
	"ledgerdesk/internal/config"
	"ledgerdesk/internal/console"
	"ledgerdesk/internal/core"
	apphttp "ledgerdesk/internal/http"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/settings"
	"ledgerdesk/internal/storage"
	"ledgerdesk/internal/store"
	"ledgerdesk/internal/store/memory"
)

func main() {
	// Load .env for local development, ignore absence in production.
	_ = godotenv.Load()

	logger := log.New(log.ComponentApp, slog.LevelInfo)
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	var (
		dataStore     store.Store
		settingsStore settings.Store
	)

	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.New(cfg.SQLiteDBPath, logger)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		dataStore, settingsStore = sqliteStore, sqliteStore
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		memStore := memory.New()
		seedFromFiles(memStore, "data", logger)
		dataStore, settingsStore = memStore, memStore
		logger.Info("Initialized memory backend")
	}

	con := console.New(dataStore, logger)
	con.Engine().ScanCap = cfg.ScanCap

	var publisher apphttp.JobPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Export queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Export queue disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(con, settings.NewService(settingsStore, logger), logger, apphttp.Options{
		Addr:          ":" + cfg.Port,
		Publisher:     publisher,
		OverviewTTL:   cfg.OverviewTTL,
		OverviewCache: cfg.OverviewCache,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting ledgerdesk server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// seedFromFiles loads demo records from dir when the JSON files exist.
func seedFromFiles(st *memory.Store, dir string, logger *log.Logger) {
	var actors []core.Actor
	if loadJSON(filepath.Join(dir, "actors.json"), &actors, logger) {
		st.SeedActors(actors)
		logger.Info("Seeded actors", log.FieldRows, len(actors))
	}
	var txs []core.Transaction
	if loadJSON(filepath.Join(dir, "transactions.json"), &txs, logger) {
		st.SeedTransactions(txs)
		logger.Info("Seeded transactions", log.FieldRows, len(txs))
	}
}

func loadJSON(path string, v any, logger *log.Logger) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("Failed to parse seed file", "path", path, log.FieldError, err)
		return false
	}
	return true
}
