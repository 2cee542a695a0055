// Package storage provides the SQLite-backed TransactionStore used when the
// ledger runs self-hosted instead of against the external backend.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.TransactionStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, studentID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, month, year, amount_cents, paid_date, receipt_url, label, created_at
		FROM fee_transactions
		WHERE student_id = ?
		ORDER BY created_at, rowid`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, studentID string, draft core.TransactionDraft) (core.Transaction, error) {
	t := core.Transaction{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		Month:      draft.Month,
		Year:       draft.Year,
		Amount:     draft.Amount,
		PaidDate:   draft.PaidDate,
		ReceiptURL: draft.ReceiptURL,
		Label:      draft.Label,
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fee_transactions (id, student_id, month, year, amount_cents, paid_date, receipt_url, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StudentID, string(t.Month), t.Year, t.Amount.Cents,
		t.PaidDate.Format("2006-01-02"), t.ReceiptURL, t.Label,
		t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"student_id", t.StudentID,
		"month", t.Month,
		"year", t.Year,
		"amount_cents", t.Amount.Cents)

	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, studentID, transactionID string, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE fee_transactions
		SET month = ?, year = ?, amount_cents = ?, paid_date = ?,
		    receipt_url = CASE WHEN ? != '' THEN ? ELSE receipt_url END,
		    label = CASE WHEN ? != '' THEN ? ELSE label END
		WHERE id = ? AND student_id = ?`,
		string(draft.Month), draft.Year, draft.Amount.Cents,
		draft.PaidDate.Format("2006-01-02"),
		draft.ReceiptURL, draft.ReceiptURL,
		draft.Label, draft.Label,
		transactionID, studentID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return r.getTransaction(ctx, studentID, transactionID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, studentID, transactionID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM fee_transactions WHERE id = ? AND student_id = ?`,
		transactionID, studentID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite",
		"id", transactionID, "student_id", studentID)
	return nil
}

func (r *SQLiteRepository) MonthlyRate(ctx context.Context, studentID string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT rate_cents FROM monthly_rates WHERE student_id = ?`, studentID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("query monthly rate: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) SetMonthlyRate(ctx context.Context, studentID string, rate core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_rates (student_id, rate_cents, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET rate_cents = excluded.rate_cents, updated_at = excluded.updated_at`,
		studentID, rate.Cents, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert monthly rate: %w", err)
	}
	slog.InfoContext(ctx, "Monthly rate updated",
		"student_id", studentID, "rate_cents", rate.Cents)
	return nil
}

func (r *SQLiteRepository) getTransaction(ctx context.Context, studentID, transactionID string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, month, year, amount_cents, paid_date, receipt_url, label, created_at
		FROM fee_transactions
		WHERE id = ? AND student_id = ?`, transactionID, studentID)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		month     string
		paidDate  string
		createdAt string
	)
	err := s.Scan(&t.ID, &t.StudentID, &month, &t.Year, &t.Amount.Cents,
		&paidDate, &t.ReceiptURL, &t.Label, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Month = core.Month(month)
	if ts, err := time.Parse("2006-01-02", paidDate); err == nil {
		t.PaidDate = core.Date{Time: ts}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}
