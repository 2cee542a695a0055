// Package services orchestrates ledger reads and confirmation-gated writes
// across the transaction store, the audit event stream and receipt storage.
package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"feeledger/internal/amqp"
	"feeledger/internal/core"
	"feeledger/internal/gate"
	"feeledger/internal/log"
	"feeledger/internal/store"
)

// EventPublisher emits audit events for committed mutations. A nil publisher
// disables the audit trail without disabling the ledger.
type EventPublisher interface {
	PublishFeeEvent(ctx context.Context, msg *amqp.FeeEventMessage) error
}

// LedgerService builds ledger views and drives the stage/confirm protocol.
// One confirmation gate exists per student, created lazily.
type LedgerService struct {
	store     store.TransactionStore
	publisher EventPublisher
	uploader  store.ReceiptUploader
	renderer  store.ReceiptRenderer
	auth      gate.Authorizer
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	gates map[string]*gate.Gate
}

// Options carries the optional collaborators of a LedgerService.
type Options struct {
	Publisher EventPublisher
	Uploader  store.ReceiptUploader
	Renderer  store.ReceiptRenderer
	Now       func() time.Time
}

func NewLedgerService(st store.TransactionStore, auth gate.Authorizer, logger *log.Logger, opts Options) *LedgerService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		store:     st,
		publisher: opts.Publisher,
		uploader:  opts.Uploader,
		renderer:  opts.Renderer,
		auth:      auth,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       now,
		gates:     make(map[string]*gate.Gate),
	}
}

// ViewQuery selects one student-year and the optional display filters.
type ViewQuery struct {
	StudentID string
	Year      int
	Month     core.Month
	Status    core.Status
}

// LedgerView is everything one rendering of the ledger needs. Summary always
// covers the whole year; Rows may be narrowed by the filters.
type LedgerView struct {
	StudentID    string
	Year         int
	Rate         core.Money
	Rows         []core.LedgerRow
	Summary      core.YearSummary
	MonthFilter  core.Month
	StatusFilter core.Status
	Staged       *gate.Mutation
}

// View builds the full ledger view for a student-year. Transactions and the
// monthly rate are fetched concurrently; the twelve rows are then derived
// locally.
func (s *LedgerService) View(ctx context.Context, q ViewQuery) (LedgerView, error) {
	if q.StudentID == "" {
		return LedgerView{}, core.ErrEmptyStudent
	}
	if !core.ValidYear(q.Year) {
		return LedgerView{}, core.ErrInvalidYear
	}

	var (
		txs  []core.Transaction
		rate core.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, q.StudentID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rate, err = s.store.MonthlyRate(gctx, q.StudentID)
		if err != nil {
			return fmt.Errorf("monthly rate: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return LedgerView{}, err
	}

	rows := core.BuildYear(txs, rate, q.Year, s.now())
	if err := core.CheckRows(rows, rate); err != nil {
		s.logger.ErrorContext(ctx, "ledger invariant violated",
			log.FieldStudentID, q.StudentID,
			log.FieldYear, q.Year,
			log.FieldError, err.Error(),
		)
	}

	view := LedgerView{
		StudentID:    q.StudentID,
		Year:         q.Year,
		Rate:         rate,
		Rows:         core.FilterRows(rows, q.Month, q.Status),
		Summary:      core.Summarize(rows),
		MonthFilter:  q.Month,
		StatusFilter: q.Status,
	}
	if staged, ok := s.gateFor(q.StudentID).Staged(); ok {
		view.Staged = &staged
	}
	return view, nil
}

// StagePayment stages a new payment pending confirmation.
func (s *LedgerService) StagePayment(ctx context.Context, studentID string, draft core.TransactionDraft) error {
	m := gate.Mutation{Action: gate.ActionPay, StudentID: studentID, Draft: draft}
	return s.stage(ctx, m)
}

// StageEdit stages a correction of the month's latest payment. The target
// transaction is resolved at commit time so a payment recorded between stage
// and confirm is the one corrected.
func (s *LedgerService) StageEdit(ctx context.Context, studentID string, month core.Month, year int, draft core.TransactionDraft) error {
	m := gate.Mutation{Action: gate.ActionEdit, StudentID: studentID, Month: month, Year: year, Draft: draft}
	return s.stage(ctx, m)
}

// StageDelete stages removal of the month's latest payment. Resolution
// happens here so the confirmation dialog can name the exact transaction
// being removed.
func (s *LedgerService) StageDelete(ctx context.Context, studentID string, month core.Month, year int) error {
	if studentID == "" {
		return core.ErrEmptyStudent
	}
	txs, err := s.store.ListTransactions(ctx, studentID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	target, ok := core.LatestTransaction(txs, month, year)
	if !ok {
		return fmt.Errorf("%s %d: %w", month, year, store.ErrNotFound)
	}
	m := gate.Mutation{
		Action:        gate.ActionDelete,
		StudentID:     studentID,
		Month:         month,
		Year:          year,
		TransactionID: target.ID,
	}
	return s.stage(ctx, m)
}

// StageRate stages a change of the student's monthly rate. Past months keep
// their recorded payments; their balances are recomputed against the new rate
// once it commits.
func (s *LedgerService) StageRate(ctx context.Context, studentID string, newRate core.Money) error {
	m := gate.Mutation{Action: gate.ActionSetRate, StudentID: studentID, NewRate: newRate}
	return s.stage(ctx, m)
}

func (s *LedgerService) stage(ctx context.Context, m gate.Mutation) error {
	if err := s.gateFor(m.StudentID).Stage(m); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "mutation staged",
		log.FieldOperation, log.OpStage,
		log.FieldStudentID, m.StudentID,
		log.FieldMutation, string(m.Action),
	)
	return nil
}

// Staged returns the student's pending mutation, if any.
func (s *LedgerService) Staged(studentID string) (gate.Mutation, bool) {
	return s.gateFor(studentID).Staged()
}

// Discard drops the student's pending mutation.
func (s *LedgerService) Discard(studentID string) {
	s.gateFor(studentID).Discard()
}

// Confirm commits the student's staged mutation if the code is valid. A
// rejected code or a failed store call leaves the draft staged; only a
// successful commit clears it. Callers re-read the ledger afterwards, the
// committed transaction is not folded into any cached view.
func (s *LedgerService) Confirm(ctx context.Context, studentID, code string) (gate.Mutation, error) {
	m, err := s.gateFor(studentID).Confirm(ctx, code, s.commit)
	if err != nil {
		return gate.Mutation{}, err
	}

	s.logger.InfoContext(ctx, "mutation committed",
		log.FieldOperation, log.OpCommit,
		log.FieldStudentID, studentID,
		log.FieldMutation, string(m.Action),
	)
	s.publishEvent(ctx, m)
	return m, nil
}

func (s *LedgerService) commit(ctx context.Context, m gate.Mutation) error {
	switch m.Action {
	case gate.ActionPay:
		_, err := s.store.CreateTransaction(ctx, m.StudentID, m.Draft)
		return err
	case gate.ActionEdit:
		txs, err := s.store.ListTransactions(ctx, m.StudentID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		target, ok := core.LatestTransaction(txs, m.Month, m.Year)
		if !ok {
			return fmt.Errorf("%s %d: %w", m.Month, m.Year, store.ErrNotFound)
		}
		_, err = s.store.UpdateTransaction(ctx, m.StudentID, target.ID, m.Draft)
		return err
	case gate.ActionDelete:
		return s.store.DeleteTransaction(ctx, m.StudentID, m.TransactionID)
	case gate.ActionSetRate:
		return s.store.SetMonthlyRate(ctx, m.StudentID, m.NewRate)
	default:
		return gate.ErrUnknownAction
	}
}

// publishEvent emits the audit event for a committed mutation. Failures are
// logged, never surfaced: the commit already happened and the trail is
// best-effort at this boundary.
func (s *LedgerService) publishEvent(ctx context.Context, m gate.Mutation) {
	if s.publisher == nil {
		return
	}

	var kind string
	switch m.Action {
	case gate.ActionPay:
		kind = amqp.EventPaymentCreated
	case gate.ActionEdit:
		kind = amqp.EventPaymentEdited
	case gate.ActionDelete:
		kind = amqp.EventPaymentDeleted
	case gate.ActionSetRate:
		kind = amqp.EventRateChanged
	default:
		return
	}

	msg := amqp.NewFeeEventMessage(kind, m.StudentID)
	msg.TransactionID = m.TransactionID
	switch m.Action {
	case gate.ActionPay, gate.ActionEdit:
		msg.Month = string(m.Draft.Month)
		msg.Year = m.Draft.Year
		msg.AmountCents = m.Draft.Amount.Cents
	case gate.ActionDelete:
		msg.Month = string(m.Month)
		msg.Year = m.Year
	case gate.ActionSetRate:
		msg.AmountCents = m.NewRate.Cents
	}

	if err := s.publisher.PublishFeeEvent(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "audit event publish failed",
			log.FieldStudentID, m.StudentID,
			log.FieldMutation, string(m.Action),
			log.FieldError, err.Error(),
		)
	}
}

// UploadReceipt stores a receipt file and returns the reference to attach to
// a payment draft.
func (s *LedgerService) UploadReceipt(ctx context.Context, filename string, content io.Reader) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("receipt storage not configured")
	}
	url, err := s.uploader.Upload(ctx, filename, content)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	s.logger.InfoContext(ctx, "receipt stored",
		log.FieldOperation, log.OpUpload,
		log.FieldReceiptRef, url,
	)
	return url, nil
}

// RenderReceipt produces the printable receipt for a settled month.
func (s *LedgerService) RenderReceipt(ctx context.Context, studentID string, month core.Month, year int) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("receipt rendering not configured")
	}
	view, err := s.View(ctx, ViewQuery{StudentID: studentID, Year: year})
	if err != nil {
		return nil, err
	}
	for _, row := range view.Rows {
		if row.Month == month {
			return s.renderer.Render(ctx, store.ReceiptData{
				StudentID: studentID,
				Row:       row,
				Rate:      view.Rate,
			})
		}
	}
	return nil, fmt.Errorf("%s %d: %w", month, year, store.ErrNotFound)
}

func (s *LedgerService) gateFor(studentID string) *gate.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[studentID]
	if !ok {
		g = gate.New(s.auth)
		s.gates[studentID] = g
	}
	return g
}
