package core

// YearSummary aggregates a full year of ledger rows.
type YearSummary struct {
	Year         int
	TotalPaid    Money
	TotalPending Money
}

// Summarize computes year-level totals over all twelve rows. TotalPaid sums
// every row's paid amount; TotalPending sums the balance of Pending rows only.
// Coming rows are excluded because they are not yet due. Callers must pass the
// unfiltered rows so summary figures never reflect a narrowed view.
func Summarize(rows []LedgerRow) YearSummary {
	var s YearSummary
	if len(rows) > 0 {
		s.Year = rows[0].Year
	}
	for _, r := range rows {
		s.TotalPaid = s.TotalPaid.Add(r.PaidAmount)
		if r.Status == StatusPending {
			s.TotalPending = s.TotalPending.Add(r.Balance)
		}
	}
	return s
}

// FilterRows narrows rows for display by optional month and status. Zero
// values ("" for either) disable that filter. The result is a new slice; the
// input is left intact for Summarize.
func FilterRows(rows []LedgerRow, month Month, status Status) []LedgerRow {
	out := make([]LedgerRow, 0, len(rows))
	for _, r := range rows {
		if month != "" && r.Month != month {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out
}
