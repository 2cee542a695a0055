package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"feeledger/internal/core"
)

var validate = validator.New()

// paymentRequest is the form payload staging a payment or an edit.
type paymentRequest struct {
	StudentID  string `validate:"required"`
	Month      string `validate:"required"`
	Year       int    `validate:"min=1000,max=9999"`
	Amount     string `validate:"required"`
	PaidDate   string `validate:"omitempty,datetime=2006-01-02"`
	ReceiptURL string `validate:"omitempty,max=512"`
	Label      string `validate:"omitempty,max=200"`
}

// rateRequest is the form payload staging a monthly rate change.
type rateRequest struct {
	StudentID string `validate:"required"`
	Rate      string `validate:"required"`
}

// confirmRequest is the form payload resolving a staged mutation.
type confirmRequest struct {
	StudentID string `validate:"required"`
	Code      string `validate:"required"`
}

// monthTarget names one ledger month, used by edit, delete and print.
type monthTarget struct {
	StudentID string `validate:"required"`
	Month     string `validate:"required"`
	Year      int    `validate:"min=1000,max=9999"`
}

func parsePaymentRequest(form url.Values) (paymentRequest, error) {
	req := paymentRequest{
		StudentID:  sanitizeInput(form.Get("student")),
		Month:      sanitizeInput(form.Get("month")),
		Amount:     strings.TrimSpace(form.Get("amount")),
		PaidDate:   strings.TrimSpace(form.Get("paid_date")),
		ReceiptURL: sanitizeInput(form.Get("receipt_url")),
		Label:      sanitizeInput(form.Get("label")),
	}
	req.Year = parseIntDefault(form.Get("year"), time.Now().Year())

	if err := validate.Struct(req); err != nil {
		return paymentRequest{}, err
	}
	return req, nil
}

// toDraft converts the validated request to a domain draft. The amount is
// parsed as a decimal string so no float ever touches a ledger value.
func (req paymentRequest) toDraft() (core.TransactionDraft, error) {
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		return core.TransactionDraft{}, err
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.TransactionDraft{}, err
	}

	paidDate := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if req.PaidDate != "" {
		t, err := time.Parse("2006-01-02", req.PaidDate)
		if err != nil {
			return core.TransactionDraft{}, fmt.Errorf("invalid paid date: %w", err)
		}
		paidDate = core.Date{Time: t}
	}

	return core.TransactionDraft{
		Month:      month,
		Year:       req.Year,
		Amount:     core.Money{Cents: cents},
		PaidDate:   paidDate,
		ReceiptURL: req.ReceiptURL,
		Label:      req.Label,
	}, nil
}

func parseRateRequest(form url.Values) (rateRequest, error) {
	req := rateRequest{
		StudentID: sanitizeInput(form.Get("student")),
		Rate:      strings.TrimSpace(form.Get("rate")),
	}
	if err := validate.Struct(req); err != nil {
		return rateRequest{}, err
	}
	return req, nil
}

func parseConfirmRequest(form url.Values) (confirmRequest, error) {
	req := confirmRequest{
		StudentID: sanitizeInput(form.Get("student")),
		Code:      strings.TrimSpace(form.Get("code")),
	}
	if err := validate.Struct(req); err != nil {
		return confirmRequest{}, err
	}
	return req, nil
}

func parseMonthTarget(form url.Values) (monthTarget, error) {
	req := monthTarget{
		StudentID: sanitizeInput(form.Get("student")),
		Month:     sanitizeInput(form.Get("month")),
	}
	req.Year = parseIntDefault(form.Get("year"), time.Now().Year())

	if err := validate.Struct(req); err != nil {
		return monthTarget{}, err
	}
	return req, nil
}

// parseViewQuery extracts the ledger view parameters from a query string.
// Filters are optional; an unknown month or status is reported, not ignored,
// so a typo never silently widens the view.
func parseViewQuery(query url.Values) (studentID string, year int, month core.Month, status core.Status, err error) {
	studentID = sanitizeInput(query.Get("student"))
	if studentID == "" {
		return "", 0, "", "", core.ErrEmptyStudent
	}
	year = parseIntDefault(query.Get("year"), time.Now().Year())

	if v := sanitizeInput(query.Get("month")); v != "" {
		month, err = core.ParseMonth(v)
		if err != nil {
			return "", 0, "", "", err
		}
	}
	if v := sanitizeInput(query.Get("status")); v != "" {
		status = core.Status(v)
		if !status.Valid() {
			return "", 0, "", "", fmt.Errorf("invalid status filter %q", v)
		}
	}
	return studentID, year, month, status, nil
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func mustParseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid request format").Write(w)
		return false
	}
	return true
}
