// Package memory holds the audit trail in process memory. Used for tests and
// for deployments that do not wire a spreadsheet.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"feeledger/internal/amqp"
)

type Trail struct {
	mu     sync.Mutex
	events []amqp.FeeEventMessage
}

func New() *Trail {
	return &Trail{}
}

// Append stores the event and returns a synthetic row reference.
func (t *Trail) Append(_ context.Context, event *amqp.FeeEventMessage) (string, error) {
	if event == nil {
		return "", errors.New("nil event")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, *event)
	return fmt.Sprintf("mem:%d", len(t.events)), nil
}

// Events returns a copy of everything appended so far.
func (t *Trail) Events() []amqp.FeeEventMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]amqp.FeeEventMessage(nil), t.events...)
}
