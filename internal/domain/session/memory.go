package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps states in process memory. Everything is lost on
// restart, which only means users have to send /pay again.
type MemoryBackend struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{states: make(map[string]State)}
}

func (m *MemoryBackend) Load(_ context.Context, userID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[userID]
	if !ok {
		return StateNone, ErrNoState
	}
	return state, nil
}

func (m *MemoryBackend) Save(_ context.Context, userID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[userID] = state
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, userID)
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
