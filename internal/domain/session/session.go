// Package session tracks per-user conversation state, such as whether the
// next message from a user should be read as a payment amount.
package session

import (
	"context"
	"errors"
	"fmt"
)

type State string

const (
	StateNone           State = "NONE"
	StateAwaitingAmount State = "AWAITING_AMOUNT"
)

// ErrNoState is returned by a Backend when nothing is stored for a user.
var ErrNoState = errors.New("no session state")

// Backend stores session states. Implementations must be safe for
// concurrent use across users.
type Backend interface {
	Load(ctx context.Context, userID string) (State, error)
	Save(ctx context.Context, userID string, state State) error
	Delete(ctx context.Context, userID string) error
}

type Tracker struct {
	backend Backend
}

func NewTracker(backend Backend) *Tracker {
	return &Tracker{backend: backend}
}

// Get returns StateNone when the user has no stored state.
func (t *Tracker) Get(ctx context.Context, userID string) (State, error) {
	state, err := t.backend.Load(ctx, userID)
	if errors.Is(err, ErrNoState) {
		return StateNone, nil
	}
	if err != nil {
		return StateNone, fmt.Errorf("load session for %s: %w", userID, err)
	}
	return state, nil
}

// Set stores state for userID. Setting StateNone is the same as Clear.
func (t *Tracker) Set(ctx context.Context, userID string, state State) error {
	if state == StateNone || state == "" {
		return t.Clear(ctx, userID)
	}
	if err := t.backend.Save(ctx, userID, state); err != nil {
		return fmt.Errorf("save session for %s: %w", userID, err)
	}
	return nil
}

func (t *Tracker) Clear(ctx context.Context, userID string) error {
	if err := t.backend.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear session for %s: %w", userID, err)
	}
	return nil
}
