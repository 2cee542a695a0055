// Package memory provides an in-memory TransactionStore used in tests and as
// the zero-setup development backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

type Store struct {
	mu    sync.Mutex
	txs   map[string][]core.Transaction // studentID → creation order
	rates map[string]core.Money
	now   func() time.Time
}

func New() *Store {
	return &Store{
		txs:   make(map[string][]core.Transaction),
		rates: make(map[string]core.Money),
		now:   time.Now,
	}
}

// NewWithClock pins the creation timestamps, keeping ledger tests
// deterministic.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

var _ store.TransactionStore = (*Store)(nil)

func (s *Store) ListTransactions(_ context.Context, studentID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.txs[studentID]...)
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, studentID string, draft core.TransactionDraft) (core.Transaction, error) {
	t := core.Transaction{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		Month:      draft.Month,
		Year:       draft.Year,
		Amount:     draft.Amount,
		PaidDate:   draft.PaidDate,
		ReceiptURL: draft.ReceiptURL,
		Label:      draft.Label,
		CreatedAt:  s.now(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[studentID] = append(s.txs[studentID], t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, studentID, transactionID string, draft core.TransactionDraft) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.txs[studentID]
	for i, t := range list {
		if t.ID != transactionID {
			continue
		}
		t.Month = draft.Month
		t.Year = draft.Year
		t.Amount = draft.Amount
		t.PaidDate = draft.PaidDate
		if draft.ReceiptURL != "" {
			t.ReceiptURL = draft.ReceiptURL
		}
		if draft.Label != "" {
			t.Label = draft.Label
		}
		if err := t.Validate(); err != nil {
			return core.Transaction{}, err
		}
		list[i] = t
		return t, nil
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, studentID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.txs[studentID]
	for i, t := range list {
		if t.ID == transactionID {
			s.txs[studentID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) MonthlyRate(_ context.Context, studentID string) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates[studentID], nil
}

func (s *Store) SetMonthlyRate(_ context.Context, studentID string, rate core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[studentID] = rate
	return nil
}
