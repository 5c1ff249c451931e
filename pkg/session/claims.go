package session

import (
	"context"
	"fmt"
	"time"

	"opensacco-client/pkg/portal"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the access token payload the client reads.
// The signature is not verified: the token is only ever checked by the API.
type Claims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the claims carry an expiry in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes an access token without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("session: parse access token: %w", err)
	}

	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	switch uid := mc["user_id"].(type) {
	case string:
		c.UserID = uid
	case float64:
		c.UserID = fmt.Sprintf("%.0f", uid)
	}
	if name, ok := mc["username"].(string); ok {
		c.Username = name
	} else if sub, err := mc.GetSubject(); err == nil {
		c.Username = sub
	}
	return c, nil
}

// Claims returns the claims of the stored access token. A missing or expired
// token yields portal.ErrNotAuthenticated.
func (s *Session) Claims(ctx context.Context, now time.Time) (Claims, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return Claims{}, err
	}
	c, err := ParseClaims(token)
	if err != nil {
		return Claims{}, err
	}
	if c.Expired(now) {
		return c, fmt.Errorf("session: access token expired at %s: %w", c.ExpiresAt.Format(time.RFC3339), portal.ErrNotAuthenticated)
	}
	return c, nil
}
