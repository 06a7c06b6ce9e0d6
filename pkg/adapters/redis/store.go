// Package redis implements ports.SessionStore on a Redis backend.
// Answer state and confirmation flags live under separate keys so
// clearing answers after submission keeps the confirmation intact.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

// Store implements ports.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for session entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for session entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis session store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis session store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "arbor:session:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) stateKey(key ports.SessionKey) string {
	return s.prefix + key.String()
}

func (s *Store) confirmationKey(key ports.SessionKey) string {
	return s.prefix + key.String() + ":confirmation"
}

// GetState retrieves the session's answers. A missing entry reads as an
// empty state, never an error.
func (s *Store) GetState(ctx context.Context, key ports.SessionKey) (form.State, error) {
	val, err := s.client.Get(ctx, s.stateKey(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return form.State{}, nil
		}
		return nil, fmt.Errorf("failed to get session state: %w", err)
	}

	var state form.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return state, nil
}

// SetState stores the session's answers wholesale and refreshes the TTL.
func (s *Store) SetState(ctx context.Context, key ports.SessionKey, state form.State) (form.State, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := s.client.Set(ctx, s.stateKey(key), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to set session state: %w", err)
	}
	return state, nil
}

// ClearState removes the session's answers. The confirmation flag stays.
func (s *Store) ClearState(ctx context.Context, key ports.SessionKey) error {
	if err := s.client.Del(ctx, s.stateKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

// GetConfirmationState reports whether the session already submitted.
func (s *Store) GetConfirmationState(ctx context.Context, key ports.SessionKey) (ports.ConfirmationState, error) {
	var confirmation ports.ConfirmationState
	val, err := s.client.Get(ctx, s.confirmationKey(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return confirmation, nil
		}
		return confirmation, fmt.Errorf("failed to get confirmation state: %w", err)
	}
	if err := json.Unmarshal([]byte(val), &confirmation); err != nil {
		return confirmation, fmt.Errorf("failed to unmarshal confirmation state: %w", err)
	}
	return confirmation, nil
}

// SetConfirmationState records a completed submission.
func (s *Store) SetConfirmationState(ctx context.Context, key ports.SessionKey, confirmation ports.ConfirmationState) error {
	data, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation state: %w", err)
	}
	if err := s.client.Set(ctx, s.confirmationKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set confirmation state: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
