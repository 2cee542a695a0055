package core

import (
	"reflect"
	"testing"
	"time"
)

func tx(id string, month Month, year int, cents int64, created time.Time) Transaction {
	return Transaction{
		ID:        id,
		StudentID: "s1",
		Month:     month,
		Year:      year,
		Amount:    Money{Cents: cents},
		PaidDate:  Date{Time: created},
		CreatedAt: created,
	}
}

func TestBuildYearAlwaysTwelveOrderedRows(t *testing.T) {
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	for _, txs := range [][]Transaction{
		nil,
		{tx("a", "March", 2025, 100, today)},
		{tx("a", "March", 2024, 100, today), tx("b", "March", 2026, 100, today)},
	} {
		rows := BuildYear(txs, Money{Cents: 500000}, 2025, today)
		if len(rows) != 12 {
			t.Fatalf("expected 12 rows, got %d", len(rows))
		}
		for i, r := range rows {
			if r.Month != Months[i] {
				t.Fatalf("row %d: expected %s, got %s", i, Months[i], r.Month)
			}
			if r.Year != 2025 {
				t.Fatalf("row %d: expected year 2025, got %d", i, r.Year)
			}
		}
	}
}

func TestBuildYearScenarios(t *testing.T) {
	rate := Money{Cents: 500000} // 5000.00
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		txs         []Transaction
		month       Month
		wantPaid    int64
		wantBalance int64
		wantStatus  Status
	}{
		{
			name:        "exact payment resolves to Paid",
			txs:         []Transaction{tx("a", "March", 2025, 500000, today)},
			month:       "March",
			wantPaid:    500000,
			wantBalance: 0,
			wantStatus:  StatusPaid,
		},
		{
			name:        "future unpaid month is Coming",
			txs:         nil,
			month:       "June",
			wantPaid:    0,
			wantBalance: 500000,
			wantStatus:  StatusComing,
		},
		{
			name:        "elapsed unpaid month is Pending",
			txs:         nil,
			month:       "January",
			wantPaid:    0,
			wantBalance: 500000,
			wantStatus:  StatusPending,
		},
		{
			name: "two partial payments sum to Paid",
			txs: []Transaction{
				tx("a", "May", 2025, 200000, today),
				tx("b", "May", 2025, 300000, today.Add(time.Hour)),
			},
			month:       "May",
			wantPaid:    500000,
			wantBalance: 0,
			wantStatus:  StatusPaid,
		},
		{
			name:        "overpayment clamps balance at zero",
			txs:         []Transaction{tx("a", "February", 2025, 600000, today)},
			month:       "February",
			wantPaid:    600000,
			wantBalance: 0,
			wantStatus:  StatusPaid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := BuildYear(tc.txs, rate, 2025, today)
			row := rows[MonthIndex(tc.month)-1]
			if row.PaidAmount.Cents != tc.wantPaid {
				t.Fatalf("paid: expected %d, got %d", tc.wantPaid, row.PaidAmount.Cents)
			}
			if row.Balance.Cents != tc.wantBalance {
				t.Fatalf("balance: expected %d, got %d", tc.wantBalance, row.Balance.Cents)
			}
			if row.Status != tc.wantStatus {
				t.Fatalf("status: expected %s, got %s", tc.wantStatus, row.Status)
			}
		})
	}
}

func TestBuildYearDeleteRecomputes(t *testing.T) {
	rate := Money{Cents: 500000}
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{tx("a", "January", 2025, 500000, today)}

	before := BuildYear(txs, rate, 2025, today)
	if before[0].Status != StatusPaid {
		t.Fatalf("expected January Paid before delete, got %s", before[0].Status)
	}

	// Deleting the only backing transaction flips the row back to unpaid.
	after := BuildYear(nil, rate, 2025, today)
	jan := after[0]
	if jan.PaidAmount.Cents != 0 || jan.Balance.Cents != rate.Cents {
		t.Fatalf("expected paid 0 balance %d, got paid %d balance %d",
			rate.Cents, jan.PaidAmount.Cents, jan.Balance.Cents)
	}
	if jan.Status != StatusPending {
		t.Fatalf("expected January Pending after delete, got %s", jan.Status)
	}
	june := after[5]
	if june.Status != StatusComing {
		t.Fatalf("expected June Coming after delete, got %s", june.Status)
	}
}

func TestBuildYearIdempotent(t *testing.T) {
	rate := Money{Cents: 120000}
	today := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("a", "May", 2025, 50000, today.Add(-time.Hour)),
		tx("b", "May", 2025, 30000, today),
		tx("c", "July", 2025, 120000, today),
	}
	first := BuildYear(txs, rate, 2025, today)
	second := BuildYear(txs, rate, 2025, today)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("builder output differs across runs on identical input")
	}
}

func TestBuildYearSumIsOrderIndependent(t *testing.T) {
	rate := Money{Cents: 100000}
	today := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	a := tx("a", "March", 2025, 1234, today.Add(-2*time.Hour))
	b := tx("b", "March", 2025, 4321, today.Add(-time.Hour))
	c := tx("c", "March", 2025, 5555, today)

	first := BuildYear([]Transaction{a, b, c}, rate, 2025, today)
	second := BuildYear([]Transaction{c, a, b}, rate, 2025, today)
	row1, row2 := first[2], second[2]
	if row1.PaidAmount != row2.PaidAmount || row1.Balance != row2.Balance {
		t.Fatalf("aggregation depends on input order: %+v vs %+v", row1, row2)
	}
}

func TestBuildYearMostRecentTransactionWins(t *testing.T) {
	rate := Money{Cents: 500000}
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	older := tx("old", "May", 2025, 200000, today.Add(-48*time.Hour))
	older.ReceiptURL = "/receipts/old.png"
	newer := tx("new", "May", 2025, 300000, today.Add(-time.Hour))
	newer.ReceiptURL = "/receipts/new.png"

	rows := BuildYear([]Transaction{older, newer}, rate, 2025, today)
	may := rows[4]
	if may.ReceiptRef != "/receipts/new.png" {
		t.Fatalf("expected newest receipt, got %q", may.ReceiptRef)
	}
	if !may.DisplayDate.Equal(newer.PaidDate.Time) {
		t.Fatalf("expected newest paid date, got %v", may.DisplayDate)
	}
	if may.Transactions[0].ID != "new" || may.Transactions[1].ID != "old" {
		t.Fatalf("transactions not most-recent-first: %s, %s",
			may.Transactions[0].ID, may.Transactions[1].ID)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		balance int64
		year    int
		month   int
		want    Status
	}{
		{"zero balance future year still Paid", 0, 2030, 1, StatusPaid},
		{"negative balance past year still Paid", -100, 2020, 1, StatusPaid},
		{"unpaid future year", 100, 2026, 1, StatusComing},
		{"unpaid later month same year", 100, 2025, 5, StatusComing},
		{"unpaid current month", 100, 2025, 4, StatusPending},
		{"unpaid earlier month same year", 100, 2025, 3, StatusPending},
		{"unpaid past year is Pending not Coming", 100, 2024, 12, StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.balance, tc.year, tc.month, today)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCheckRows(t *testing.T) {
	rate := Money{Cents: 1000}
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	rows := BuildYear([]Transaction{tx("a", "March", 2025, 2500, today)}, rate, 2025, today)
	if err := CheckRows(rows, rate); err != nil {
		t.Fatalf("built rows should satisfy invariants: %v", err)
	}

	bad := LedgerRow{Month: "March", Year: 2025, PaidAmount: Money{Cents: -1}}
	if err := bad.Check(rate); err == nil {
		t.Fatal("expected error for negative paid amount")
	}
	bad = LedgerRow{Month: "March", Year: 2025, Balance: Money{Cents: -1}}
	if err := bad.Check(rate); err == nil {
		t.Fatal("expected error for negative balance")
	}
	bad = LedgerRow{Month: "March", Year: 2025, PaidAmount: Money{Cents: 100}, Balance: Money{Cents: 100}}
	if err := bad.Check(rate); err == nil {
		t.Fatal("expected error for under-covered rate")
	}
}

func TestLatestTransaction(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("a", "May", 2025, 100, now.Add(-time.Hour)),
		tx("b", "May", 2025, 200, now),
		tx("c", "June", 2025, 300, now),
	}
	got, ok := LatestTransaction(txs, "May", 2025)
	if !ok || got.ID != "b" {
		t.Fatalf("expected latest May transaction b, got %+v ok=%v", got, ok)
	}
	if _, ok := LatestTransaction(txs, "December", 2025); ok {
		t.Fatal("expected no transaction for December")
	}
}
