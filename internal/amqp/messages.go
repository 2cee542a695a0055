package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published after a confirmed financial mutation commits.
const (
	EventPaymentCreated = "payment_created"
	EventPaymentEdited  = "payment_edited"
	EventPaymentDeleted = "payment_deleted"
	EventRateChanged    = "rate_changed"
)

// FeeEventMessage is the audit record published for every committed mutation.
// The worker appends these to the accountant's audit ledger; amounts travel as
// cents so the trail is decimal-exact.
type FeeEventMessage struct {
	Kind          string    `json:"kind"`
	StudentID     string    `json:"student_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Month         string    `json:"month,omitempty"`
	Year          int       `json:"year,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewFeeEventMessage(kind, studentID string) *FeeEventMessage {
	return &FeeEventMessage{
		Kind:      kind,
		StudentID: studentID,
		Timestamp: time.Now(),
	}
}

func (m *FeeEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func FeeEventMessageFromJSON(data []byte) (*FeeEventMessage, error) {
	var msg FeeEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
