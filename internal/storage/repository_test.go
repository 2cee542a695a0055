package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fees.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	draft := core.TransactionDraft{
		Month:    "May",
		Year:     2025,
		Amount:   core.Money{Cents: 200000},
		PaidDate: core.NewDate(2025, 5, 2),
		Label:    "paid",
	}
	created, err := repo.CreateTransaction(ctx, "s1", draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected store-assigned id")
	}

	second, err := repo.CreateTransaction(ctx, "s1", core.TransactionDraft{
		Month: "May", Year: 2025, Amount: core.Money{Cents: 300000}, PaidDate: core.NewDate(2025, 5, 20),
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := repo.ListTransactions(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != created.ID || list[1].ID != second.ID {
		t.Fatalf("expected creation order, got %+v", list)
	}
	if list[0].Amount.Cents != 200000 || list[0].Month != "May" || list[0].Year != 2025 {
		t.Fatalf("round trip mismatch: %+v", list[0])
	}

	updated, err := repo.UpdateTransaction(ctx, "s1", second.ID, core.TransactionDraft{
		Month: "June", Year: 2025, Amount: core.Money{Cents: 500000}, PaidDate: core.NewDate(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Month != "June" || updated.Amount.Cents != 500000 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := repo.DeleteTransaction(ctx, "s1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "s1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ = repo.ListTransactions(ctx, "s1")
	if len(list) != 1 {
		t.Fatalf("expected 1 remaining transaction, got %d", len(list))
	}
}

func TestUpdateMissingTransaction(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpdateTransaction(context.Background(), "s1", "nope", core.TransactionDraft{
		Month: "May", Year: 2025, Amount: core.Money{Cents: 1}, PaidDate: core.NewDate(2025, 5, 1),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMonthlyRateUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rate, err := repo.MonthlyRate(ctx, "s1")
	if err != nil || rate.Cents != 0 {
		t.Fatalf("expected zero rate, got %d (err=%v)", rate.Cents, err)
	}
	if err := repo.SetMonthlyRate(ctx, "s1", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if err := repo.SetMonthlyRate(ctx, "s1", core.Money{Cents: 650000}); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	rate, _ = repo.MonthlyRate(ctx, "s1")
	if rate.Cents != 650000 {
		t.Fatalf("expected 650000 after upsert, got %d", rate.Cents)
	}
}
