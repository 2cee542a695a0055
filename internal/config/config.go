package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Store backend selection: rest | sqlite | memory
	StoreBackend string

	// External backend (rest)
	BackendBaseURL string
	BackendTimeout time.Duration

	// SQLite (self-hosted store)
	SQLiteDBPath string

	// Confirmation gate
	ConfirmCode string

	// AMQP audit events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Receipts
	ReceiptBackend string // local | drive
	ReceiptDir     string
	DriveFolderID  string

	// Google Sheets audit ledger (worker)
	AuditSpreadsheetID string
	AuditSheetName     string

	// Worker
	AuditMaxRetries   int
	AuditRetryBackoff time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		StoreBackend:   getEnv("STORE_BACKEND", "memory"),
		BackendBaseURL: getEnv("BACKEND_BASE_URL", ""),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/feeledger.db"),

		ConfirmCode: getEnv("CONFIRM_CODE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "feeledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fee_events"),

		ReceiptBackend: getEnv("RECEIPT_BACKEND", "local"),
		ReceiptDir:     getEnv("RECEIPT_DIR", "./data/receipts"),
		DriveFolderID:  getEnv("DRIVE_FOLDER_ID", ""),

		AuditSpreadsheetID: getEnv("AUDIT_SPREADSHEET_ID", ""),
		AuditSheetName:     getEnv("AUDIT_SHEET_NAME", "FeeAudit"),

		AuditMaxRetries:   getEnvInt("AUDIT_MAX_RETRIES", 3),
		AuditRetryBackoff: getEnvDuration("AUDIT_RETRY_BACKOFF", time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case "memory", "sqlite", "rest":
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of [memory sqlite rest]", c.StoreBackend))
	}

	if c.StoreBackend == "rest" {
		if c.BackendBaseURL == "" {
			errors = append(errors, "backend base URL is required when using rest store backend")
		} else if parsed, err := url.Parse(c.BackendBaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid backend base URL '%s': must be http(s)", c.BackendBaseURL))
		}
		if c.BackendTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at least 1 second", c.BackendTimeout))
		}
	}

	if c.StoreBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.ConfirmCode == "" {
		errors = append(errors, "confirmation code must be configured (CONFIRM_CODE)")
	} else if len(c.ConfirmCode) < 4 {
		errors = append(errors, "confirmation code must be at least 4 characters")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ReceiptBackend {
	case "local":
		if c.ReceiptDir == "" {
			errors = append(errors, "receipt directory cannot be empty when using local receipt backend")
		}
	case "drive":
		if c.DriveFolderID == "" {
			errors = append(errors, "Drive folder ID is required when using drive receipt backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid receipt backend '%s': must be one of [local drive]", c.ReceiptBackend))
	}

	if c.AuditMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid audit max retries %d: must be at least 1", c.AuditMaxRetries))
	} else if c.AuditMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid audit max retries %d: must be at most 10", c.AuditMaxRetries))
	}

	if c.AuditRetryBackoff < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid audit retry backoff %v: must be at least 100ms", c.AuditRetryBackoff))
	} else if c.AuditRetryBackoff > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid audit retry backoff %v: must be at most 1 minute", c.AuditRetryBackoff))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
