package core

import (
	"errors"
	"strings"
	"time"
)

// Statuses a ledger month can be in. Status is derived from balance and the
// current date, never stored.
const (
	StatusPaid    Status = "Paid"
	StatusPending Status = "Pending"
	StatusComing  Status = "Coming"
)

type (
	Status string

	// Month is one of the twelve canonical English month names.
	Month string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one recorded payment event for a student. The ID is
	// assigned by the store on creation; CreatedAt carries creation order so
	// the latest transaction of a month can be identified.
	Transaction struct {
		ID         string
		StudentID  string
		Month      Month
		Year       int
		Amount     Money
		PaidDate   Date
		ReceiptURL string
		Label      string
		CreatedAt  time.Time
	}

	// TransactionDraft holds the caller-supplied fields of a payment before it
	// has been committed to the store.
	TransactionDraft struct {
		Month      Month
		Year       int
		Amount     Money
		PaidDate   Date
		ReceiptURL string
		Label      string
	}
)

// Months lists the canonical month names in calendar order.
var Months = [12]Month{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrEmptyStudent  = errors.New("empty student id")
)

// MonthIndex returns the 1-based calendar index of m, or 0 if m is not a
// canonical month name.
func MonthIndex(m Month) int {
	for i, name := range Months {
		if name == m {
			return i + 1
		}
	}
	return 0
}

// MonthFromIndex returns the canonical name for a 1-based index.
func MonthFromIndex(idx int) (Month, error) {
	if idx < 1 || idx > 12 {
		return "", ErrInvalidMonth
	}
	return Months[idx-1], nil
}

// ParseMonth matches a month name case-insensitively against the canonical
// list. Ledger grouping is exact, so inputs are normalized here once.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, name := range Months {
		if strings.EqualFold(s, string(name)) {
			return name, nil
		}
	}
	return "", ErrInvalidMonth
}

func (m Month) Valid() bool { return MonthIndex(m) != 0 }

func (s Status) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusComing:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsEmpty reports whether the date is unset; rows without transactions carry
// an empty display date.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// ValidYear bounds years to four digits, matching transaction records.
func ValidYear(year int) bool {
	return year >= 1000 && year <= 9999
}

func (d TransactionDraft) Validate() error {
	if !d.Month.Valid() {
		return ErrInvalidMonth
	}
	if !ValidYear(d.Year) {
		return ErrInvalidYear
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.PaidDate.Validate(); err != nil {
		return err
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.StudentID) == "" {
		return ErrEmptyStudent
	}
	return TransactionDraft{
		Month:    t.Month,
		Year:     t.Year,
		Amount:   t.Amount,
		PaidDate: t.PaidDate,
	}.Validate()
}
