// Package session holds the bearer credentials of the signed-in user.
//
// A Session is created once per process and injected into the API client and
// the auth and profile services; nothing reads token storage directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/portal"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Storage keys for the two tokens.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store persists token strings by key.
type Store interface {
	// Get returns the value for key or portal.ErrTokenNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend in logs.
	Name() string

	// Close releases backend resources.
	Close() error
}

// Session is the credential context shared by API-calling components.
type Session struct {
	store  Store
	mu     sync.RWMutex
	logger *logging.Logger
}

// New creates a session on top of store.
func New(store Store) *Session {
	return &Session{
		store:  store,
		logger: logging.Global().Named("session").With(zap.String("store", store.Name())),
	}
}

// SetTokens persists both tokens. A pair with an empty token is rejected
// and nothing is written.
func (s *Session) SetTokens(ctx context.Context, tokens portal.Tokens) error {
	if !tokens.Valid() {
		return fmt.Errorf("session: incomplete token pair: %w", portal.ErrUnexpectedContent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, AccessTokenKey, tokens.Access); err != nil {
		return fmt.Errorf("session: store access token: %w", err)
	}
	if err := s.store.Set(ctx, RefreshTokenKey, tokens.Refresh); err != nil {
		// The new access token must not pair with an older refresh token.
		if cerr := s.clear(ctx); cerr != nil {
			s.logger.Warn("error clearing tokens after failed write", zap.Error(cerr))
		}
		return fmt.Errorf("session: store refresh token: %w", err)
	}

	s.logger.Debug("tokens stored")
	return nil
}

// Tokens returns the stored pair. Missing tokens are returned as empty strings.
func (s *Session) Tokens(ctx context.Context) (portal.Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens portal.Tokens
	var err error
	if tokens.Access, err = s.get(ctx, AccessTokenKey); err != nil {
		return portal.Tokens{}, err
	}
	if tokens.Refresh, err = s.get(ctx, RefreshTokenKey); err != nil {
		return portal.Tokens{}, err
	}
	return tokens, nil
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, portal.ErrTokenNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: read %s: %w", key, err)
	}
	return v, nil
}

// AccessToken returns the stored access token or portal.ErrNotAuthenticated.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, err := s.get(ctx, AccessTokenKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", portal.ErrNotAuthenticated
	}
	return token, nil
}

// Clear removes both tokens. Both deletes are attempted even if one fails.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clear(ctx); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}

	s.logger.Debug("tokens cleared")
	return nil
}

// clear deletes both keys. Caller holds mu.
func (s *Session) clear(ctx context.Context) error {
	return multierr.Combine(
		s.store.Delete(ctx, AccessTokenKey),
		s.store.Delete(ctx, RefreshTokenKey),
	)
}

// Close closes the underlying store.
func (s *Session) Close() error {
	return s.store.Close()
}
