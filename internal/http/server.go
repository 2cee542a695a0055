// Package http serves the fee ledger UI and the mutation endpoints guarded by
// the confirmation gate.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"feeledger/internal/cache"
	"feeledger/internal/log"
	"feeledger/internal/services"
	appweb "feeledger/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	service     *services.LedgerService
	logger      *log.Logger
	rateLimiter *rateLimiter

	// Rendered ledger views, keyed by student and filters. Every mutation
	// endpoint invalidates the student's prefix; views are re-derived from
	// the store afterwards, never patched.
	viewCache *cache.LRUCache[services.LedgerView]

	receiptDir   string
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// receiptDir may be empty when receipts are stored remotely.
func NewServer(addr string, service *services.LedgerService, logger *log.Logger, receiptDir string) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:     service,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		viewCache:   cache.NewLRUCache[services.LedgerView](200, 2*time.Minute),
		receiptDir:  receiptDir,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	}

	if receiptDir != "" {
		files := http.StripPrefix("/receipts/files/", http.FileServer(http.Dir(receiptDir)))
		mux.Handle("/receipts/files/", s.withMiddleware(files.ServeHTTP))
	}

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/ui/ledger", s.withMiddleware(s.handleLedgerPartial))

	mux.HandleFunc("/payments", s.withMiddleware(s.handleStagePayment))
	mux.HandleFunc("/payments/edit", s.withMiddleware(s.handleStageEdit))
	mux.HandleFunc("/payments/delete", s.withMiddleware(s.handleStageDelete))
	mux.HandleFunc("/rate", s.withMiddleware(s.handleStageRate))
	mux.HandleFunc("/confirm", s.withMiddleware(s.handleConfirm))
	mux.HandleFunc("/discard", s.withMiddleware(s.handleDiscard))

	mux.HandleFunc("/receipts", s.withMiddleware(s.handleReceiptUpload))
	mux.HandleFunc("/receipts/print", s.withMiddleware(s.handleReceiptPrint))

	return s, nil
}

// RegisterCaches adds the server's caches to a cleanup manager.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register("ledger_views", s.viewCache)
}

// invalidateViews drops every cached view of one student.
func (s *Server) invalidateViews(studentID string) {
	s.viewCache.DeletePrefix(studentID + "|")
}

func viewCacheKey(q services.ViewQuery) string {
	return fmt.Sprintf("%s|%d|%s|%s", q.StudentID, q.Year, q.Month, q.Status)
}

// Shutdown stops the rate limiter alongside the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
