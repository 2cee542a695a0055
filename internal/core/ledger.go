package core

import (
	"fmt"
	"sort"
	"time"
)

// LedgerRow is the derived monthly summary of obligation vs. payment for one
// (student, year, month). Rows are never persisted; they are rebuilt from the
// transaction list and the current monthly rate on every change.
type LedgerRow struct {
	Month      Month
	Year       int
	PaidAmount Money
	Balance    Money // clamped at zero for display; overpaid months never go negative
	Status     Status
	// Transactions holds the contributing payments, most recently created
	// first. DisplayDate and ReceiptRef come from the first entry.
	Transactions []Transaction
	DisplayDate  Date
	ReceiptRef   string
}

// BuildYear produces exactly twelve ledger rows for the given year, in
// January→December order, from the student's full transaction list and the
// current monthly rate. It is pure and deterministic: same inputs, same rows.
//
// Transactions are grouped by exact (month, year) match. Months without
// transactions still get a row with a zero paid amount and a balance equal to
// the rate. Balance is always computed against the current rate, including for
// months that were settled under an older rate.
func BuildYear(txs []Transaction, rate Money, year int, today time.Time) []LedgerRow {
	rows := make([]LedgerRow, 0, len(Months))
	for idx, month := range Months {
		matches := matchingTransactions(txs, month, year)

		var paid int64
		for _, t := range matches {
			paid += t.Amount.Cents
		}
		raw := rate.Cents - paid

		row := LedgerRow{
			Month:        month,
			Year:         year,
			PaidAmount:   Money{Cents: paid},
			Balance:      Money{Cents: max64(0, raw)},
			Status:       Classify(raw, year, idx+1, today),
			Transactions: matches,
		}
		if len(matches) > 0 {
			row.DisplayDate = matches[0].PaidDate
			row.ReceiptRef = matches[0].ReceiptURL
		}
		rows = append(rows, row)
	}
	return rows
}

// Classify maps an outstanding balance and a calendar position to a status.
// Precedence is fixed:
//
//  1. balance <= 0 is Paid, regardless of dates (overpayment included)
//  2. a future year is Coming
//  3. a later month of the current year is Coming
//  4. everything else is Pending
//
// A month in a past year with an unpaid balance is Pending, never Coming: the
// classifier only looks forward from today, and no separate overdue state
// exists.
func Classify(balanceCents int64, year, monthIndex int, today time.Time) Status {
	if balanceCents <= 0 {
		return StatusPaid
	}
	if year > today.Year() {
		return StatusComing
	}
	if year == today.Year() && monthIndex > int(today.Month()) {
		return StatusComing
	}
	return StatusPending
}

// Check verifies the row invariants against the rate it was built with. A
// negative paid amount or an inconsistent balance is a programming error, not
// recoverable input; callers should treat a non-nil result as a bug.
func (r LedgerRow) Check(rate Money) error {
	if r.PaidAmount.Cents < 0 {
		return fmt.Errorf("ledger row %s %d: negative paid amount %d", r.Month, r.Year, r.PaidAmount.Cents)
	}
	if r.Balance.Cents < 0 {
		return fmt.Errorf("ledger row %s %d: negative balance %d", r.Month, r.Year, r.Balance.Cents)
	}
	if r.PaidAmount.Cents >= rate.Cents && r.Balance.Cents != 0 {
		return fmt.Errorf("ledger row %s %d: paid %d covers rate %d but balance is %d",
			r.Month, r.Year, r.PaidAmount.Cents, rate.Cents, r.Balance.Cents)
	}
	if r.PaidAmount.Cents < rate.Cents && r.PaidAmount.Cents+r.Balance.Cents < rate.Cents {
		return fmt.Errorf("ledger row %s %d: paid %d + balance %d does not cover rate %d",
			r.Month, r.Year, r.PaidAmount.Cents, r.Balance.Cents, rate.Cents)
	}
	return nil
}

// CheckRows runs Check over a full year of rows.
func CheckRows(rows []LedgerRow, rate Money) error {
	for _, r := range rows {
		if err := r.Check(rate); err != nil {
			return err
		}
	}
	return nil
}

// LatestTransaction returns the most recently created transaction matching
// (month, year), or false when the month has none. Edits always target this
// transaction.
func LatestTransaction(txs []Transaction, month Month, year int) (Transaction, bool) {
	matches := matchingTransactions(txs, month, year)
	if len(matches) == 0 {
		return Transaction{}, false
	}
	return matches[0], true
}

// matchingTransactions filters and orders the month's transactions, most
// recently created first. Store listing order is creation order, so equal
// timestamps resolve to the later list entry.
func matchingTransactions(txs []Transaction, month Month, year int) []Transaction {
	var matches []Transaction
	for _, t := range txs {
		if t.Month == month && t.Year == year {
			matches = append(matches, t)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
