package http

import (
	"errors"
	"html/template"
	"net/http"

	"feeledger/internal/core"
	"feeledger/internal/log"
	"feeledger/internal/store"
)

const maxReceiptBytes = 10 << 20 // 10 MiB

// handleReceiptUpload stores a receipt file and returns its reference. The
// reference is attached to a payment draft by the form, not here; uploading
// alone changes no ledger figure.
func (s *Server) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		BadRequestError("receipt upload too large or malformed").Write(w)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		BadRequestError("missing receipt file").Write(w)
		return
	}
	defer file.Close()

	url, err := s.service.UploadReceipt(r.Context(), header.Filename, file)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "receipt upload failed",
			log.FieldOperation, log.OpUpload,
			log.FieldError, err.Error(),
		)
		InternalServerError("could not store receipt").Write(w)
		return
	}

	escaped := template.HTMLEscapeString(url)
	NewHTMXResponse().
		TriggerSuccessNotification("receipt stored").
		BodyHTML(`<input type="hidden" name="receipt_url" value="` + escaped + `">` +
			`<a href="` + escaped + `" target="_blank">attached receipt</a>`).
		Write(w)
}

// handleReceiptPrint renders the printable receipt for a settled month.
func (s *Server) handleReceiptPrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	req, err := parseMonthTarget(r.URL.Query())
	if err != nil {
		UnprocessableEntityError("student, month and year are required").Write(w)
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	doc, err := s.service.RenderReceipt(r.Context(), req.StudentID, month, req.Year)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("no ledger row for that month").Write(w)
			return
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(doc)
}
