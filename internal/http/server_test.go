package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/gate"
	"feeledger/internal/log"
	"feeledger/internal/receipts"
	"feeledger/internal/services"
	"feeledger/internal/store/memory"
)

func testServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	st := memory.New()
	renderer, err := receipts.NewHTMLRenderer()
	if err != nil {
		t.Fatalf("NewHTMLRenderer: %v", err)
	}
	svc := services.NewLedgerService(st, gate.NewSharedCode("7788"), log.New(log.DefaultConfig()), services.Options{
		Renderer: renderer,
		Now:      func() time.Time { return time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC) },
	})

	srv, err := NewServer(":0", svc, log.New(log.DefaultConfig()), "")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, st
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersLookup(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Fee Ledger") {
		t.Fatal("index page missing title")
	}
}

func TestLedgerPartialShowsTwelveMonths(t *testing.T) {
	srv, st := testServer(t)
	if err := st.SetMonthlyRate(context.Background(), "s1", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("SetMonthlyRate: %v", err)
	}

	rec := get(t, srv, "/ui/ledger?student=s1&year=2025")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, m := range core.Months {
		if !strings.Contains(body, "<td>"+string(m)+"</td>") {
			t.Fatalf("ledger missing month row %s", m)
		}
	}
}

func TestLedgerPartialOffersRowMutations(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()
	if err := st.SetMonthlyRate(ctx, "s1", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("SetMonthlyRate: %v", err)
	}
	_, err := st.CreateTransaction(ctx, "s1", core.TransactionDraft{
		Month:    core.Month("March"),
		Year:     2025,
		Amount:   core.Money{Cents: 500000},
		PaidDate: core.Date{Time: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	rec := get(t, srv, "/ui/ledger?student=s1&year=2025")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `hx-post="/payments/edit"`) {
		t.Fatal("paid row missing edit form")
	}
	if !strings.Contains(body, `hx-post="/payments/delete"`) {
		t.Fatal("paid row missing delete form")
	}
	// Only the one paid month gets row controls.
	if got := strings.Count(body, `hx-post="/payments/delete"`); got != 1 {
		t.Fatalf("delete forms = %d, want 1", got)
	}
}

func TestLedgerPartialRequiresStudent(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv, "/ui/ledger?year=2025")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestStageAndConfirmPaymentFlow(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()
	if err := st.SetMonthlyRate(ctx, "s1", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("SetMonthlyRate: %v", err)
	}

	form := url.Values{
		"student":   {"s1"},
		"month":     {"March"},
		"year":      {"2025"},
		"amount":    {"5000.00"},
		"paid_date": {"2025-03-05"},
	}
	rec := postForm(t, srv, "/payments", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("stage status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "mutation:staged") {
		t.Fatal("missing mutation:staged trigger")
	}

	// nothing committed yet
	txs, _ := st.ListTransactions(ctx, "s1")
	if len(txs) != 0 {
		t.Fatalf("staging wrote %d transactions", len(txs))
	}

	rec = postForm(t, srv, "/confirm", url.Values{"student": {"s1"}, "code": {"7788"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", rec.Code, rec.Body.String())
	}
	txs, _ = st.ListTransactions(ctx, "s1")
	if len(txs) != 1 || txs[0].Amount.Cents != 500000 {
		t.Fatalf("unexpected transactions after confirm: %+v", txs)
	}

	// the refreshed ledger shows March as paid
	body := get(t, srv, "/ui/ledger?student=s1&year=2025").Body.String()
	if !strings.Contains(body, "Paid") {
		t.Fatal("refetched ledger does not show the paid month")
	}
}

func TestConfirmWrongCodeKeepsDraft(t *testing.T) {
	srv, st := testServer(t)

	form := url.Values{
		"student":   {"s1"},
		"month":     {"March"},
		"year":      {"2025"},
		"amount":    {"5000.00"},
		"paid_date": {"2025-03-05"},
	}
	if rec := postForm(t, srv, "/payments", form); rec.Code != http.StatusOK {
		t.Fatalf("stage status = %d", rec.Code)
	}

	rec := postForm(t, srv, "/confirm", url.Values{"student": {"s1"}, "code": {"wrong"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong code status = %d, want 403", rec.Code)
	}
	txs, _ := st.ListTransactions(context.Background(), "s1")
	if len(txs) != 0 {
		t.Fatal("rejected confirmation reached the store")
	}

	// retry succeeds
	if rec := postForm(t, srv, "/confirm", url.Values{"student": {"s1"}, "code": {"7788"}}); rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d", rec.Code)
	}
}

func TestSecondStageConflicts(t *testing.T) {
	srv, _ := testServer(t)

	form := url.Values{
		"student":   {"s1"},
		"month":     {"March"},
		"year":      {"2025"},
		"amount":    {"5000.00"},
		"paid_date": {"2025-03-05"},
	}
	if rec := postForm(t, srv, "/payments", form); rec.Code != http.StatusOK {
		t.Fatalf("first stage status = %d", rec.Code)
	}
	if rec := postForm(t, srv, "/payments", form); rec.Code != http.StatusConflict {
		t.Fatalf("second stage status = %d, want 409", rec.Code)
	}

	// discard frees the gate
	if rec := postForm(t, srv, "/discard", url.Values{"student": {"s1"}}); rec.Code != http.StatusOK {
		t.Fatalf("discard status = %d", rec.Code)
	}
	if rec := postForm(t, srv, "/payments", form); rec.Code != http.StatusOK {
		t.Fatalf("stage after discard status = %d", rec.Code)
	}
}

func TestStagePaymentRejectsBadAmount(t *testing.T) {
	srv, _ := testServer(t)

	form := url.Values{
		"student":   {"s1"},
		"month":     {"March"},
		"year":      {"2025"},
		"amount":    {"not-a-number"},
		"paid_date": {"2025-03-05"},
	}
	if rec := postForm(t, srv, "/payments", form); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestDeleteWithoutPaymentIs404(t *testing.T) {
	srv, _ := testServer(t)

	form := url.Values{"student": {"s1"}, "month": {"March"}, "year": {"2025"}}
	if rec := postForm(t, srv, "/payments/delete", form); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestConfirmNothingStaged(t *testing.T) {
	srv, _ := testServer(t)

	rec := postForm(t, srv, "/confirm", url.Values{"student": {"s1"}, "code": {"7788"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestReceiptPrintOnlyForSettledMonths(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()
	if err := st.SetMonthlyRate(ctx, "s1", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("SetMonthlyRate: %v", err)
	}
	if _, err := st.CreateTransaction(ctx, "s1", core.TransactionDraft{
		Month:    "March",
		Year:     2025,
		Amount:   core.Money{Cents: 500000},
		PaidDate: core.NewDate(2025, 3, 5),
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	rec := get(t, srv, "/receipts/print?student=s1&month=March&year=2025")
	if rec.Code != http.StatusOK {
		t.Fatalf("settled month status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Monthly Fee Receipt") {
		t.Fatal("receipt document missing heading")
	}

	rec = get(t, srv, "/receipts/print?student=s1&month=April&year=2025")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unsettled month status = %d, want 422", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	if rec := get(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if rec := get(t, srv, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}
}

func TestMutationEndpointsRejectGet(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/payments", "/payments/edit", "/payments/delete", "/rate", "/confirm", "/discard", "/receipts"} {
		if rec := get(t, srv, path); rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s status = %d, want 405", path, rec.Code)
		}
	}
}
