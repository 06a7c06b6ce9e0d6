// Package memory implements ports.SessionStore in process memory. It
// backs tests and single-instance previews; a multi-instance deployment
// needs the redis adapter.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

// Store is an in-memory session store safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	states        map[string][]byte
	confirmations map[string]ports.ConfirmationState
}

func New() *Store {
	return &Store{
		states:        make(map[string][]byte),
		confirmations: make(map[string]ports.ConfirmationState),
	}
}

func (s *Store) GetState(_ context.Context, key ports.SessionKey) (form.State, error) {
	s.mu.RLock()
	data, ok := s.states[key.String()]
	s.mu.RUnlock()
	if !ok {
		return form.State{}, nil
	}

	// Round-trip through JSON so callers see the same value shapes the
	// redis adapter produces.
	var state form.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return state, nil
}

func (s *Store) SetState(_ context.Context, key ports.SessionKey, state form.State) (form.State, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	s.mu.Lock()
	s.states[key.String()] = data
	s.mu.Unlock()
	return state, nil
}

func (s *Store) ClearState(_ context.Context, key ports.SessionKey) error {
	s.mu.Lock()
	delete(s.states, key.String())
	s.mu.Unlock()
	return nil
}

func (s *Store) GetConfirmationState(_ context.Context, key ports.SessionKey) (ports.ConfirmationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmations[key.String()], nil
}

func (s *Store) SetConfirmationState(_ context.Context, key ports.SessionKey, confirmation ports.ConfirmationState) error {
	s.mu.Lock()
	s.confirmations[key.String()] = confirmation
	s.mu.Unlock()
	return nil
}
