package http

import (
	"errors"
	"fmt"
	"net/http"

	"feeledger/internal/core"
	"feeledger/internal/gate"
	"feeledger/internal/log"
	"feeledger/internal/store"
)

// handleStagePayment stages a new payment pending confirmation. Nothing is
// written until /confirm succeeds.
func (s *Server) handleStagePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	req, err := parsePaymentRequest(r.Form)
	if err != nil {
		UnprocessableEntityError("invalid payment details").Write(w)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.service.StagePayment(r.Context(), req.StudentID, draft); err != nil {
		s.writeStageError(w, err)
		return
	}

	s.invalidateViews(req.StudentID)
	NewHTMXResponse().
		TriggerMutationStaged(string(gate.ActionPay)).
		TriggerLedgerRefresh(req.StudentID, draft.Year).
		BodyHTML(confirmPromptHTML(fmt.Sprintf("Record payment of %s for %s %d?", draft.Amount, draft.Month, draft.Year))).
		Write(w)
}

// handleStageEdit stages a correction of the month's latest payment.
func (s *Server) handleStageEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	req, err := parsePaymentRequest(r.Form)
	if err != nil {
		UnprocessableEntityError("invalid payment details").Write(w)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.service.StageEdit(r.Context(), req.StudentID, draft.Month, draft.Year, draft); err != nil {
		s.writeStageError(w, err)
		return
	}

	s.invalidateViews(req.StudentID)
	NewHTMXResponse().
		TriggerMutationStaged(string(gate.ActionEdit)).
		TriggerLedgerRefresh(req.StudentID, draft.Year).
		BodyHTML(confirmPromptHTML(fmt.Sprintf("Replace the latest payment of %s %d with %s?", draft.Month, draft.Year, draft.Amount))).
		Write(w)
}

// handleStageDelete stages removal of the month's latest payment.
func (s *Server) handleStageDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	req, err := parseMonthTarget(r.Form)
	if err != nil {
		UnprocessableEntityError("invalid delete target").Write(w)
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.service.StageDelete(r.Context(), req.StudentID, month, req.Year); err != nil {
		s.writeStageError(w, err)
		return
	}

	s.invalidateViews(req.StudentID)
	NewHTMXResponse().
		TriggerMutationStaged(string(gate.ActionDelete)).
		TriggerLedgerRefresh(req.StudentID, req.Year).
		BodyHTML(confirmPromptHTML(fmt.Sprintf("Delete the latest payment of %s %d?", month, req.Year))).
		Write(w)
}

// handleStageRate stages a monthly rate change.
func (s *Server) handleStageRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	req, err := parseRateRequest(r.Form)
	if err != nil {
		UnprocessableEntityError("invalid rate details").Write(w)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Rate)
	if err != nil {
		UnprocessableEntityError("invalid rate amount").Write(w)
		return
	}
	rate := core.Money{Cents: cents}

	if err := s.service.StageRate(r.Context(), req.StudentID, rate); err != nil {
		s.writeStageError(w, err)
		return
	}

	s.invalidateViews(req.StudentID)
	NewHTMXResponse().
		TriggerMutationStaged(string(gate.ActionSetRate)).
		BodyHTML(confirmPromptHTML(fmt.Sprintf("Change the monthly rate to %s? Past months will be re-balanced against the new rate.", rate))).
		Write(w)
}

// handleConfirm commits the student's staged mutation. A wrong code keeps the
// draft staged, so the office can retry without re-entering details.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	req, err := parseConfirmRequest(r.Form)
	if err != nil {
		UnprocessableEntityError("student and confirmation code are required").Write(w)
		return
	}

	m, err := s.service.Confirm(r.Context(), req.StudentID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrNothingStaged):
			ConflictError("nothing is waiting for confirmation").Write(w)
		case errors.Is(err, gate.ErrConfirmationInvalid):
			ForbiddenError("confirmation code does not match, the draft is kept").Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "commit failed",
				log.FieldStudentID, req.StudentID,
				log.FieldError, err.Error(),
			)
			InternalServerError("could not apply the change, the draft is kept").Write(w)
		}
		return
	}

	s.invalidateViews(req.StudentID)
	NewHTMXResponse().
		TriggerMutationResolved().
		TriggerLedgerRefresh(req.StudentID, m.Year).
		TriggerSuccessNotification(fmt.Sprintf("%s confirmed", m.Action)).
		BodyHTML(`<div class="success">Change applied</div>`).
		Write(w)
}

// handleDiscard drops the student's staged mutation.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if !mustParseForm(w, r) {
		return
	}

	studentID := sanitizeInput(r.Form.Get("student"))
	if studentID == "" {
		UnprocessableEntityError("student is required").Write(w)
		return
	}

	s.service.Discard(studentID)
	s.invalidateViews(studentID)
	NewHTMXResponse().
		TriggerMutationResolved().
		BodyHTML(`<div class="info">Draft discarded</div>`).
		Write(w)
}

func (s *Server) writeStageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrAlreadyStaged):
		ConflictError("another change is already waiting for confirmation").Write(w)
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("no payment recorded for that month").Write(w)
	default:
		UnprocessableEntityError(err.Error()).Write(w)
	}
}

func confirmPromptHTML(question string) string {
	return `<div class="confirm-prompt">` + question + ` Enter the confirmation code to proceed.</div>`
}
