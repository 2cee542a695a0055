package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feeledger/internal/amqp"
	"feeledger/internal/backend"
	"feeledger/internal/cache"
	"feeledger/internal/config"
	"feeledger/internal/gate"
	apphttp "feeledger/internal/http"
	"feeledger/internal/log"
	"feeledger/internal/receipts"
	"feeledger/internal/services"
	"feeledger/internal/store"
)

func main() {
	// Load .env for local development; ignore errors in production
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backend.Config{
		Type:    backend.Type(cfg.StoreBackend),
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
		DBPath:  cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("failed to initialize store backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("store cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	// AMQP audit events are optional; the ledger works without a broker.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("failed to initialize AMQP client, continuing without audit events",
				log.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP audit events enabled",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	uploader, receiptDir, err := buildUploader(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize receipt storage", log.FieldError, err.Error())
		os.Exit(1)
	}

	renderer, err := receipts.NewHTMLRenderer()
	if err != nil {
		logger.Error("failed to initialize receipt renderer", log.FieldError, err.Error())
		os.Exit(1)
	}

	service := services.NewLedgerService(result.Store, gate.NewSharedCode(cfg.ConfirmCode), logger, services.Options{
		Publisher: publisher,
		Uploader:  uploader,
		Renderer:  renderer,
	})

	srv, err := apphttp.NewServer(":"+cfg.Port, service, logger, receiptDir)
	if err != nil {
		logger.Error("failed to initialize HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	cacheManager := cache.NewManager(10*time.Minute, logger)
	srv.RegisterCaches(cacheManager)
	cacheManager.StartCleanup(ctx)
	defer cacheManager.Stop()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received",
			log.FieldOperation, log.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("starting feeledger server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"receipt_backend", cfg.ReceiptBackend,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

// buildUploader wires the configured receipt storage. The returned directory
// is non-empty only for local storage, where the server also serves the files.
func buildUploader(ctx context.Context, cfg *config.Config) (store.ReceiptUploader, string, error) {
	switch cfg.ReceiptBackend {
	case "drive":
		u, err := receipts.NewDriveUploader(ctx, cfg.DriveFolderID)
		return u, "", err
	default:
		u, err := receipts.NewLocalUploader(cfg.ReceiptDir)
		if err != nil {
			return nil, "", err
		}
		return u, u.Dir(), nil
	}
}
