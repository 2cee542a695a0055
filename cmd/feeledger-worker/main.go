package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"feeledger/internal/amqp"
	"feeledger/internal/audit"
	auditgoogle "feeledger/internal/audit/google"
	auditmemory "feeledger/internal/audit/memory"
	"feeledger/internal/config"
	"feeledger/internal/log"
	"feeledger/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.DefaultConfig().Level,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The spreadsheet trail is the normal deployment; the in-memory trail
	// keeps the worker runnable for local smoke tests without credentials.
	var trail audit.TrailWriter
	if cfg.AuditSpreadsheetID != "" {
		client, err := auditgoogle.New(ctx, cfg.AuditSpreadsheetID, cfg.AuditSheetName)
		if err != nil {
			logger.Error("failed to initialize Sheets audit trail", log.FieldError, err.Error())
			os.Exit(1)
		}
		trail = client
		logger.Info("Sheets audit trail initialized",
			"spreadsheet_id", cfg.AuditSpreadsheetID,
			"sheet", cfg.AuditSheetName,
		)
	} else {
		trail = auditmemory.New()
		logger.Warn("no AUDIT_SPREADSHEET_ID set, audit rows stay in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received",
			log.FieldOperation, log.OpShutdown, "signal", sig.String())
		cancel()
	}()

	w := worker.NewAuditWorker(trail, logger, cfg.AuditMaxRetries, cfg.AuditRetryBackoff)
	if err := w.Run(ctx, amqpClient); err != nil && ctx.Err() == nil {
		logger.Error("audit worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("audit worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
