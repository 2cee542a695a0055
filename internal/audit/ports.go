// Package audit defines the outbound port for the accountant's audit ledger.
// Committed mutations are appended as rows; the ledger is append-only.
package audit

import (
	"context"

	"feeledger/internal/amqp"
)

// TrailWriter appends one committed mutation to the audit trail and returns a
// reference to the written row.
type TrailWriter interface {
	Append(ctx context.Context, event *amqp.FeeEventMessage) (rowRef string, err error)
}
