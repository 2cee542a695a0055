// Package backend selects and wires a transaction store implementation at
// startup.
package backend

import (
	"context"
	"time"

	"feeledger/internal/store"
)

// Type names a transaction store implementation.
type Type string

const (
	RESTBackend   Type = "rest"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is supported.
func (t Type) IsValid() bool {
	switch t {
	case RESTBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases the backend's resources on shutdown.
type CleanupFunc func() error

// Result carries the wired store and its optional cleanup.
type Result struct {
	Store   store.TransactionStore
	Cleanup CleanupFunc
}

// Config holds what each backend needs to come up.
type Config struct {
	Type Type

	// rest
	BaseURL string
	Timeout time.Duration

	// sqlite
	DBPath string
}

// Factory creates a transaction store from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
