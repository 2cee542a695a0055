package backend

import (
	"context"
	"fmt"

	"feeledger/internal/log"
	"feeledger/internal/storage"
	"feeledger/internal/store/memory"
	"feeledger/internal/store/rest"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	switch config.Type {
	case RESTBackend:
		return f.createRESTBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRESTBackend(config Config) (*Result, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for rest backend")
	}
	client := rest.NewClient(config.BaseURL, config.Timeout)
	f.logger.Info("initialized rest backend", "base_url", config.BaseURL)
	return &Result{Store: client}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("database path is required for sqlite backend")
	}
	repo, err := storage.NewSQLiteRepository(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}
	f.logger.Info("initialized sqlite backend", "db_path", config.DBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	f.logger.Info("initialized memory backend")
	return &Result{Store: memory.New()}, nil
}
