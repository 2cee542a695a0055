package cache

import (
	"context"
	"sync"
	"time"

	"feeledger/internal/log"
)

// Cleaner is anything that can purge its expired entries.
type Cleaner interface {
	CleanExpired() int
	Size() int
}

// Manager runs periodic cleanup over a set of registered caches.
type Manager struct {
	mu       sync.Mutex
	caches   map[string]Cleaner
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewManager creates a manager that cleans registered caches every interval.
func NewManager(interval time.Duration, logger *log.Logger) *Manager {
	return &Manager{
		caches:   make(map[string]Cleaner),
		interval: interval,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// Register adds a named cache to the cleanup cycle.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup launches the background cleanup loop.
func (m *Manager) StartCleanup(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanAll()
			}
		}
	}()
}

// Stop halts the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Manager) cleanAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, c := range m.caches {
		removed := c.CleanExpired()
		if removed > 0 {
			m.logger.Debug("cache cleanup",
				"cache", name,
				"removed", removed,
				"remaining", c.Size(),
			)
		}
	}
}
