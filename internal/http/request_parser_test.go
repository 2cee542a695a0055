package http

import (
	"net/url"
	"testing"
)

func TestParsePaymentRequestToDraft(t *testing.T) {
	form := url.Values{
		"student":   {" s1 "},
		"month":     {"march"},
		"year":      {"2025"},
		"amount":    {"5000,50"},
		"paid_date": {"2025-03-05"},
		"label":     {"cash"},
	}

	req, err := parsePaymentRequest(form)
	if err != nil {
		t.Fatalf("parsePaymentRequest: %v", err)
	}
	if req.StudentID != "s1" {
		t.Fatalf("StudentID = %q", req.StudentID)
	}

	draft, err := req.toDraft()
	if err != nil {
		t.Fatalf("toDraft: %v", err)
	}
	if draft.Month != "March" {
		t.Fatalf("Month = %q, want canonical March", draft.Month)
	}
	if draft.Amount.Cents != 500050 {
		t.Fatalf("Amount = %d, want 500050", draft.Amount.Cents)
	}
	if draft.PaidDate.Format("2006-01-02") != "2025-03-05" {
		t.Fatalf("PaidDate = %s", draft.PaidDate.Format("2006-01-02"))
	}
	if draft.Label != "cash" {
		t.Fatalf("Label = %q", draft.Label)
	}
}

func TestParsePaymentRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
	}{
		{"missing student", url.Values{"month": {"March"}, "year": {"2025"}, "amount": {"5"}}},
		{"missing amount", url.Values{"student": {"s1"}, "month": {"March"}, "year": {"2025"}}},
		{"bad year", url.Values{"student": {"s1"}, "month": {"March"}, "year": {"25"}, "amount": {"5"}}},
		{"bad date", url.Values{"student": {"s1"}, "month": {"March"}, "year": {"2025"}, "amount": {"5"}, "paid_date": {"05/03/2025"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parsePaymentRequest(tc.form); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseViewQueryFilters(t *testing.T) {
	q := url.Values{"student": {"s1"}, "year": {"2025"}, "month": {"june"}, "status": {"Coming"}}
	student, year, month, status, err := parseViewQuery(q)
	if err != nil {
		t.Fatalf("parseViewQuery: %v", err)
	}
	if student != "s1" || year != 2025 || month != "June" || status != "Coming" {
		t.Fatalf("got %q %d %q %q", student, year, month, status)
	}
}

func TestParseViewQueryRejectsTypos(t *testing.T) {
	if _, _, _, _, err := parseViewQuery(url.Values{"student": {"s1"}, "month": {"Marzo"}}); err == nil {
		t.Fatal("expected error for unknown month")
	}
	if _, _, _, _, err := parseViewQuery(url.Values{"student": {"s1"}, "status": {"Overdue"}}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  abc\x00def  "); got != "abcdef" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
