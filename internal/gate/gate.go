// Package gate implements the two-phase confirmation protocol guarding every
// financial mutation: a draft is staged after structural validation, then
// committed only when the caller presents a valid confirmation code.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"feeledger/internal/core"
)

// Mutation kinds accepted by the gate.
const (
	ActionPay     Action = "pay"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionSetRate Action = "set_rate"
)

type Action string

var (
	ErrNothingStaged       = errors.New("no mutation staged")
	ErrAlreadyStaged       = errors.New("another mutation is already staged")
	ErrConfirmationInvalid = errors.New("confirmation code does not match")
	ErrMissingTransaction  = errors.New("missing transaction id")
	ErrUnknownAction       = errors.New("unknown mutation action")
)

// Authorizer decides whether a confirmation code authorizes a staged mutation.
// The ledger logic never sees the secret; swapping in real authentication only
// means providing another implementation.
type Authorizer interface {
	Verify(code string) bool
}

// SharedCode is the shared-secret Authorizer used by the school office: one
// code for every financial mutation, compared in constant time.
type SharedCode struct {
	code string
}

func NewSharedCode(code string) SharedCode {
	return SharedCode{code: code}
}

func (a SharedCode) Verify(code string) bool {
	if a.code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.code), []byte(code)) == 1
}

// Mutation is one staged change. Exactly one of the payload fields is
// meaningful depending on Action: Draft for pay, Month/Year+Draft for edit,
// TransactionID for delete, NewRate for set_rate.
type Mutation struct {
	Action        Action
	StudentID     string
	Draft         core.TransactionDraft
	Month         core.Month
	Year          int
	TransactionID string
	NewRate       core.Money
}

// Validate runs the local structural checks of phase 1. Nothing is staged and
// no network call happens when these fail.
func (m Mutation) Validate() error {
	if strings.TrimSpace(m.StudentID) == "" {
		return core.ErrEmptyStudent
	}
	switch m.Action {
	case ActionPay:
		return m.Draft.Validate()
	case ActionEdit:
		if !m.Month.Valid() {
			return core.ErrInvalidMonth
		}
		if !core.ValidYear(m.Year) {
			return core.ErrInvalidYear
		}
		return m.Draft.Validate()
	case ActionDelete:
		if strings.TrimSpace(m.TransactionID) == "" {
			return ErrMissingTransaction
		}
		return nil
	case ActionSetRate:
		return m.NewRate.Validate()
	default:
		return ErrUnknownAction
	}
}

// CommitFunc applies a confirmed mutation to the transaction store.
type CommitFunc func(ctx context.Context, m Mutation) error

// Gate holds at most one staged mutation for a single student. State machine:
// Idle → Staged → {Committed, Rejected}. A rejected confirmation keeps the
// draft staged so the caller can retry the code without re-entering details;
// a commit clears the gate and the caller re-reads the store.
type Gate struct {
	mu     sync.Mutex
	auth   Authorizer
	staged *Mutation
}

func New(auth Authorizer) *Gate {
	return &Gate{auth: auth}
}

// Stage validates and holds a mutation pending confirmation. Staging replaces
// nothing: a second stage while one is pending is refused, matching the UI's
// one-outstanding-mutation rule.
func (g *Gate) Stage(m Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged != nil {
		return ErrAlreadyStaged
	}
	g.staged = &m
	return nil
}

// Staged returns the pending mutation, if any.
func (g *Gate) Staged() (Mutation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged == nil {
		return Mutation{}, false
	}
	return *g.staged, true
}

// Discard drops the pending mutation and returns the gate to idle.
func (g *Gate) Discard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.staged = nil
}

// Confirm is phase 2. On a code mismatch the staged draft is retained and
// ErrConfirmationInvalid returned, with no store effect. On a commit failure
// the draft is also retained so the caller can retry once the store is
// reachable. Only a successful commit clears the gate.
func (g *Gate) Confirm(ctx context.Context, code string, commit CommitFunc) (Mutation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.staged == nil {
		return Mutation{}, ErrNothingStaged
	}
	if !g.auth.Verify(code) {
		return Mutation{}, ErrConfirmationInvalid
	}
	m := *g.staged
	if err := commit(ctx, m); err != nil {
		return Mutation{}, fmt.Errorf("commit %s: %w", m.Action, err)
	}
	g.staged = nil
	return m, nil
}
