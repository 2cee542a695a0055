package http

import (
	"bytes"
	"net/http"

	"feeledger/internal/log"
	"feeledger/internal/services"
)

// handleIndex renders the full ledger page. Without a student parameter the
// page shows only the lookup form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("page not found").Write(w)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	data := struct {
		View    *services.LedgerView
		Message string
	}{}

	if r.URL.Query().Get("student") != "" {
		view, err := s.ledgerView(r)
		if err != nil {
			data.Message = err.Error()
		} else {
			data.View = &view
		}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "render index failed", log.FieldError, err.Error())
		InternalServerError("failed to render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleLedgerPartial renders the twelve-row ledger table partial for HTMX
// swaps.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	view, err := s.ledgerView(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "ledger.html", view); err != nil {
		s.logger.ErrorContext(r.Context(), "render ledger failed",
			log.FieldStudentID, view.StudentID,
			log.FieldError, err.Error(),
		)
		InternalServerError("failed to render ledger").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// ledgerView resolves the view for a request, consulting the cache first.
// Views with a staged mutation are never cached so the confirmation prompt
// always reflects gate state.
func (s *Server) ledgerView(r *http.Request) (services.LedgerView, error) {
	studentID, year, month, status, err := parseViewQuery(r.URL.Query())
	if err != nil {
		return services.LedgerView{}, err
	}

	q := services.ViewQuery{StudentID: studentID, Year: year, Month: month, Status: status}
	key := viewCacheKey(q)
	if view, ok := s.viewCache.Get(key); ok {
		return view, nil
	}

	view, err := s.service.View(r.Context(), q)
	if err != nil {
		return services.LedgerView{}, err
	}
	if view.Staged == nil {
		s.viewCache.Set(key, view)
	}
	return view, nil
}
