package gate

import (
	"context"
	"errors"
	"testing"

	"feeledger/internal/core"
)

func payMutation() Mutation {
	return Mutation{
		Action:    ActionPay,
		StudentID: "s1",
		Draft: core.TransactionDraft{
			Month:    "May",
			Year:     2025,
			Amount:   core.Money{Cents: 500000},
			PaidDate: core.NewDate(2025, 5, 2),
		},
	}
}

func TestStageValidation(t *testing.T) {
	g := New(NewSharedCode("1234"))

	cases := []struct {
		name string
		m    Mutation
	}{
		{"missing student", Mutation{Action: ActionPay, Draft: payMutation().Draft}},
		{"missing amount", Mutation{Action: ActionPay, StudentID: "s1",
			Draft: core.TransactionDraft{Month: "May", Year: 2025, PaidDate: core.NewDate(2025, 5, 2)}}},
		{"bad month", Mutation{Action: ActionPay, StudentID: "s1",
			Draft: core.TransactionDraft{Month: "Mai", Year: 2025, Amount: core.Money{Cents: 1}, PaidDate: core.NewDate(2025, 5, 2)}}},
		{"delete without id", Mutation{Action: ActionDelete, StudentID: "s1"}},
		{"zero rate", Mutation{Action: ActionSetRate, StudentID: "s1"}},
		{"unknown action", Mutation{Action: "drop", StudentID: "s1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.Stage(tc.m); err == nil {
				t.Fatal("expected stage to fail validation")
			}
			if _, ok := g.Staged(); ok {
				t.Fatal("invalid mutation must not be staged")
			}
		})
	}
}

func TestStageRefusesSecondMutation(t *testing.T) {
	g := New(NewSharedCode("1234"))
	if err := g.Stage(payMutation()); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := g.Stage(payMutation()); !errors.Is(err, ErrAlreadyStaged) {
		t.Fatalf("expected ErrAlreadyStaged, got %v", err)
	}
	g.Discard()
	if err := g.Stage(payMutation()); err != nil {
		t.Fatalf("stage after discard: %v", err)
	}
}

func TestConfirmWrongCodeRetainsDraft(t *testing.T) {
	g := New(NewSharedCode("1234"))
	if err := g.Stage(payMutation()); err != nil {
		t.Fatalf("stage: %v", err)
	}

	committed := false
	_, err := g.Confirm(context.Background(), "9999", func(context.Context, Mutation) error {
		committed = true
		return nil
	})
	if !errors.Is(err, ErrConfirmationInvalid) {
		t.Fatalf("expected ErrConfirmationInvalid, got %v", err)
	}
	if committed {
		t.Fatal("commit must not run on code mismatch")
	}
	if _, ok := g.Staged(); !ok {
		t.Fatal("draft must be retained after rejection")
	}

	// Retry with the right code succeeds without re-staging.
	m, err := g.Confirm(context.Background(), "1234", func(context.Context, Mutation) error { return nil })
	if err != nil {
		t.Fatalf("confirm retry: %v", err)
	}
	if m.Action != ActionPay {
		t.Fatalf("expected committed pay mutation, got %s", m.Action)
	}
	if _, ok := g.Staged(); ok {
		t.Fatal("gate must be idle after commit")
	}
}

func TestConfirmStoreFailureRetainsDraft(t *testing.T) {
	g := New(NewSharedCode("1234"))
	if err := g.Stage(payMutation()); err != nil {
		t.Fatalf("stage: %v", err)
	}
	storeErr := errors.New("store unavailable")
	_, err := g.Confirm(context.Background(), "1234", func(context.Context, Mutation) error {
		return storeErr
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if _, ok := g.Staged(); !ok {
		t.Fatal("draft must survive a failed commit")
	}
}

func TestConfirmNothingStaged(t *testing.T) {
	g := New(NewSharedCode("1234"))
	_, err := g.Confirm(context.Background(), "1234", func(context.Context, Mutation) error { return nil })
	if !errors.Is(err, ErrNothingStaged) {
		t.Fatalf("expected ErrNothingStaged, got %v", err)
	}
}

func TestSharedCodeVerify(t *testing.T) {
	a := NewSharedCode("secret")
	if !a.Verify("secret") {
		t.Fatal("expected match")
	}
	if a.Verify("Secret") || a.Verify("") {
		t.Fatal("expected mismatch")
	}
	if NewSharedCode("").Verify("") {
		t.Fatal("empty configured code must never verify")
	}
}
