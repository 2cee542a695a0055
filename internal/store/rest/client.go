// Package rest implements the TransactionStore port against the school's
// external backend API. Only the JSON shape is fixed here; everything else is
// the backend's concern.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

type Client struct {
	baseURL string
	http    *http.Client
}

var _ store.TransactionStore = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// transactionDTO mirrors the backend's wire shape. Amount travels as a decimal
// string so no float ever touches the money path.
type transactionDTO struct {
	ID         string `json:"id"`
	StudentID  string `json:"studentId"`
	Month      string `json:"month"`
	Year       int    `json:"year"`
	Amount     string `json:"amount"`
	PaidDate   string `json:"paidDate"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
	Status     string `json:"status,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type rateDTO struct {
	Rate string `json:"monthlyRate"`
}

func (c *Client) ListTransactions(ctx context.Context, studentID string) ([]core.Transaction, error) {
	var dtos []transactionDTO
	if err := c.do(ctx, http.MethodGet, c.studentPath(studentID, "transactions"), nil, &dtos); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(dtos))
	for _, d := range dtos {
		t, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", d.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, studentID string, draft core.TransactionDraft) (core.Transaction, error) {
	var created transactionDTO
	if err := c.do(ctx, http.MethodPost, c.studentPath(studentID, "transactions"), draftDTO(draft), &created); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t, err := created.toDomain()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode created transaction: %w", err)
	}
	return t, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, studentID, transactionID string, draft core.TransactionDraft) (core.Transaction, error) {
	var updated transactionDTO
	path := c.studentPath(studentID, "transactions") + "/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodPut, path, draftDTO(draft), &updated); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	t, err := updated.toDomain()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode updated transaction: %w", err)
	}
	return t, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, studentID, transactionID string) error {
	path := c.studentPath(studentID, "transactions") + "/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (c *Client) MonthlyRate(ctx context.Context, studentID string) (core.Money, error) {
	var dto rateDTO
	if err := c.do(ctx, http.MethodGet, c.studentPath(studentID, "monthly-rate"), nil, &dto); err != nil {
		return core.Money{}, fmt.Errorf("get monthly rate: %w", err)
	}
	cents, err := core.ParseDecimalToCents(dto.Rate)
	if err != nil {
		return core.Money{}, fmt.Errorf("decode monthly rate %q: %w", dto.Rate, err)
	}
	return core.Money{Cents: cents}, nil
}

func (c *Client) SetMonthlyRate(ctx context.Context, studentID string, rate core.Money) error {
	body := rateDTO{Rate: rate.String()}
	if err := c.do(ctx, http.MethodPut, c.studentPath(studentID, "monthly-rate"), body, nil); err != nil {
		return fmt.Errorf("set monthly rate: %w", err)
	}
	return nil
}

func (c *Client) studentPath(studentID, suffix string) string {
	return c.baseURL + "/students/" + url.PathEscape(studentID) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return store.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func draftDTO(d core.TransactionDraft) transactionDTO {
	return transactionDTO{
		Month:      string(d.Month),
		Year:       d.Year,
		Amount:     d.Amount.String(),
		PaidDate:   d.PaidDate.Format("2006-01-02"),
		ReceiptURL: d.ReceiptURL,
		Status:     d.Label,
	}
}

func (d transactionDTO) toDomain() (core.Transaction, error) {
	month, err := core.ParseMonth(d.Month)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(d.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	paid, err := time.Parse("2006-01-02", d.PaidDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("paid date %q: %w", d.PaidDate, err)
	}
	created := paid
	if d.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
			created = ts
		}
	}
	return core.Transaction{
		ID:         d.ID,
		StudentID:  d.StudentID,
		Month:      month,
		Year:       d.Year,
		Amount:     core.Money{Cents: cents},
		PaidDate:   core.Date{Time: paid},
		ReceiptURL: d.ReceiptURL,
		Label:      d.Status,
		CreatedAt:  created,
	}, nil
}
