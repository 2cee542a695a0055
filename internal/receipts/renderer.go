package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

// HTMLRenderer produces a self-contained printable page for one settled
// ledger month.
type HTMLRenderer struct {
	tmpl *template.Template
}

var _ store.ReceiptRenderer = (*HTMLRenderer)(nil)

func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

type receiptView struct {
	StudentID string
	Month     core.Month
	Year      int
	Paid      string
	Rate      string
	Balance   string
	Status    core.Status
	PaidDate  string
	Payments  []paymentView
}

type paymentView struct {
	Amount string
	Date   string
	Label  string
}

// Render refuses rows that are not settled; a receipt certifies payment.
func (r *HTMLRenderer) Render(_ context.Context, data store.ReceiptData) ([]byte, error) {
	if data.Row.Status != core.StatusPaid {
		return nil, fmt.Errorf("month %s %d is not settled", data.Row.Month, data.Row.Year)
	}

	view := receiptView{
		StudentID: data.StudentID,
		Month:     data.Row.Month,
		Year:      data.Row.Year,
		Paid:      data.Row.PaidAmount.String(),
		Rate:      data.Rate.String(),
		Balance:   data.Row.Balance.String(),
		Status:    data.Row.Status,
	}
	if !data.Row.DisplayDate.IsZero() {
		view.PaidDate = data.Row.DisplayDate.Format("2006-01-02")
	}
	for _, tx := range data.Row.Transactions {
		p := paymentView{Amount: tx.Amount.String(), Label: tx.Label}
		if !tx.PaidDate.IsZero() {
			p.Date = tx.PaidDate.Format("2006-01-02")
		}
		view.Payments = append(view.Payments, p)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

const receiptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Receipt {{.Month}} {{.Year}}</title>
<style>
body { font-family: Georgia, serif; max-width: 40rem; margin: 2rem auto; color: #222; }
h1 { font-size: 1.4rem; border-bottom: 2px solid #222; padding-bottom: .5rem; }
table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #ccc; }
.total { font-weight: bold; }
.stamp { margin-top: 2rem; color: #2a6e2a; font-weight: bold; letter-spacing: .1em; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>Monthly Fee Receipt</h1>
<p>Student: <strong>{{.StudentID}}</strong><br>
Period: <strong>{{.Month}} {{.Year}}</strong>{{if .PaidDate}}<br>
Settled on: <strong>{{.PaidDate}}</strong>{{end}}</p>
<table>
<tr><th>Payment date</th><th>Note</th><th>Amount</th></tr>
{{range .Payments}}<tr><td>{{.Date}}</td><td>{{.Label}}</td><td>{{.Amount}}</td></tr>
{{end}}<tr class="total"><td colspan="2">Monthly rate</td><td>{{.Rate}}</td></tr>
<tr class="total"><td colspan="2">Total paid</td><td>{{.Paid}}</td></tr>
<tr class="total"><td colspan="2">Outstanding</td><td>{{.Balance}}</td></tr>
</table>
<p class="stamp">{{.Status}}</p>
</body>
</html>
`
