package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"opensacco-client/pkg/portal"
)

// Store is a session.Store for tests. It behaves like an in-memory store
// unless a hook is set, and counts every call.
type Store struct {
	// Function hooks - set these to customize behavior
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	mu   sync.Mutex
	data map[string]string

	getCalls    int64
	setCalls    int64
	deleteCalls int64
}

// NewStore creates a mock store with the given initial values.
func NewStore(initial map[string]string) *Store {
	data := make(map[string]string, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &Store{data: data}
}

// Get implements session.Store.
func (m *Store) Get(ctx context.Context, key string) (string, error) {
	atomic.AddInt64(&m.getCalls, 1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", portal.ErrTokenNotFound
	}
	return v, nil
}

// Set implements session.Store.
func (m *Store) Set(ctx context.Context, key, value string) error {
	atomic.AddInt64(&m.setCalls, 1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// Delete implements session.Store.
func (m *Store) Delete(ctx context.Context, key string) error {
	atomic.AddInt64(&m.deleteCalls, 1)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Value returns the raw stored value, bypassing hooks.
func (m *Store) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Len returns the number of stored keys.
func (m *Store) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// GetCalls returns the number of Get calls.
func (m *Store) GetCalls() int { return int(atomic.LoadInt64(&m.getCalls)) }

// SetCalls returns the number of Set calls.
func (m *Store) SetCalls() int { return int(atomic.LoadInt64(&m.setCalls)) }

// DeleteCalls returns the number of Delete calls.
func (m *Store) DeleteCalls() int { return int(atomic.LoadInt64(&m.deleteCalls)) }

// Name implements session.Store.
func (m *Store) Name() string { return "mock" }

// Close implements session.Store.
func (m *Store) Close() error { return nil }
