package memory

import (
	"context"
	"sync"

	"opensacco-client/pkg/portal"
)

// Store keeps tokens in process memory. Tokens are gone when the process exits,
// which is what the long-running dashboard server wants.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	name string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string]string),
		name: "memory",
	}
}

// Get returns the value for key or portal.ErrTokenNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", portal.ErrTokenNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Close clears the stored tokens.
func (s *Store) Close() error {
	s.mu.Lock()
	s.data = make(map[string]string)
	s.mu.Unlock()
	return nil
}
