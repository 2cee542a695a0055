// Package worker forwards committed fee events from the broker to the audit
// trail.
package worker

import (
	"context"
	"fmt"
	"time"

	"feeledger/internal/amqp"
	"feeledger/internal/audit"
	"feeledger/internal/log"
)

// AuditWorker consumes fee events and appends them to the audit trail. The
// trail is append-only: nothing in the worker ever deletes or rewrites a row.
type AuditWorker struct {
	trail      audit.TrailWriter
	logger     *log.Logger
	maxRetries int
	backoff    time.Duration
}

func NewAuditWorker(trail audit.TrailWriter, logger *log.Logger, maxRetries int, backoff time.Duration) *AuditWorker {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &AuditWorker{
		trail:      trail,
		logger:     logger.WithComponent(log.ComponentWorker),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// HandleEvent appends one event, retrying transient trail failures before
// giving up so the message is redelivered.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *amqp.FeeEventMessage) error {
	if msg == nil {
		return fmt.Errorf("nil event")
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		rowRef, err := w.trail.Append(ctx, msg)
		if err == nil {
			w.logger.InfoContext(ctx, "audit row written",
				log.FieldStudentID, msg.StudentID,
				log.FieldMutation, msg.Kind,
				"row_ref", rowRef,
			)
			return nil
		}
		lastErr = err
		w.logger.WarnContext(ctx, "audit append failed",
			log.FieldStudentID, msg.StudentID,
			log.FieldMutation, msg.Kind,
			"attempt", attempt,
			log.FieldError, err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * w.backoff):
		}
	}
	return fmt.Errorf("append audit row after %d attempts: %w", w.maxRetries, lastErr)
}

// Run consumes events until the context is canceled.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer) error {
	w.logger.InfoContext(ctx, "audit worker started", log.FieldOperation, log.OpStartup)
	return consumer.ConsumeFeeEvents(ctx, func(msg *amqp.FeeEventMessage) error {
		return w.HandleEvent(ctx, msg)
	})
}

// EventConsumer is the broker side the worker reads from.
type EventConsumer interface {
	ConsumeFeeEvents(ctx context.Context, handler func(*amqp.FeeEventMessage) error) error
}
