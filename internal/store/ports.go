// Package store declares the ports the ledger core consumes: the durable
// transaction store, receipt storage and the receipt document renderer. The
// wire format behind each port is the adapter's concern.
package store

import (
	"context"
	"errors"
	"io"

	"feeledger/internal/core"
)

var ErrNotFound = errors.New("not found")

type (
	// TransactionStore is the durable collection of payment transactions and
	// the per-student monthly rate. Listing returns transactions in creation
	// order. Implementations: rest (external backend), sqlite, memory.
	TransactionStore interface {
		ListTransactions(ctx context.Context, studentID string) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, studentID string, draft core.TransactionDraft) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, studentID, transactionID string, draft core.TransactionDraft) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, studentID, transactionID string) error
		MonthlyRate(ctx context.Context, studentID string) (core.Money, error)
		SetMonthlyRate(ctx context.Context, studentID string, rate core.Money) error
	}

	// ReceiptUploader stores an uploaded receipt and returns the reference to
	// keep on the transaction.
	ReceiptUploader interface {
		Upload(ctx context.Context, filename string, content io.Reader) (url string, err error)
	}

	// ReceiptData carries the ledger row fields a receipt document is built
	// from.
	ReceiptData struct {
		StudentID string
		Row       core.LedgerRow
		Rate      core.Money
	}

	// ReceiptRenderer produces a printable document for one ledger row.
	ReceiptRenderer interface {
		Render(ctx context.Context, data ReceiptData) ([]byte, error)
	}
)
