package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"feeledger/internal/amqp"
	"feeledger/internal/audit/memory"
	"feeledger/internal/log"
)

type flakyTrail struct {
	failures int
	inner    *memory.Trail
}

func (f *flakyTrail) Append(ctx context.Context, event *amqp.FeeEventMessage) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("transient")
	}
	return f.inner.Append(ctx, event)
}

func TestHandleEventWritesRow(t *testing.T) {
	trail := memory.New()
	w := NewAuditWorker(trail, log.New(log.DefaultConfig()), 3, time.Millisecond)

	msg := amqp.NewFeeEventMessage(amqp.EventPaymentCreated, "s1")
	msg.AmountCents = 500000

	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := len(trail.Events()); got != 1 {
		t.Fatalf("trail has %d rows, want 1", got)
	}
}

func TestHandleEventRetriesTransientFailures(t *testing.T) {
	trail := &flakyTrail{failures: 2, inner: memory.New()}
	w := NewAuditWorker(trail, log.New(log.DefaultConfig()), 3, time.Millisecond)

	msg := amqp.NewFeeEventMessage(amqp.EventRateChanged, "s1")
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := len(trail.inner.Events()); got != 1 {
		t.Fatalf("trail has %d rows, want 1", got)
	}
}

func TestHandleEventGivesUpForRedelivery(t *testing.T) {
	trail := &flakyTrail{failures: 10, inner: memory.New()}
	w := NewAuditWorker(trail, log.New(log.DefaultConfig()), 2, time.Millisecond)

	msg := amqp.NewFeeEventMessage(amqp.EventPaymentDeleted, "s1")
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestNewAuditWorkerRetryConfig(t *testing.T) {
	logger := log.New(log.DefaultConfig())

	w := NewAuditWorker(memory.New(), logger, 5, 2*time.Second)
	if w.maxRetries != 5 || w.backoff != 2*time.Second {
		t.Fatalf("retries/backoff = %d/%v, want 5/2s", w.maxRetries, w.backoff)
	}

	// Zero values fall back to sane defaults.
	w = NewAuditWorker(memory.New(), logger, 0, 0)
	if w.maxRetries != 3 || w.backoff != time.Second {
		t.Fatalf("defaults = %d/%v, want 3/1s", w.maxRetries, w.backoff)
	}
}
