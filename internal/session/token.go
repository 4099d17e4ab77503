// Package session tracks the lifetime of the backend session token.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the token fields the client cares about
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"perfil,omitempty"`
}

// ParseToken reads the claims of a session token. The signature is not
// verified; the backend remains the authority on validity.
func ParseToken(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims := &Claims{
		Subject: tc.Subject,
		Role:    tc.Role,
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

// Expired reports whether the claims are expired at now, treating tokens
// that expire within skew as already expired.
func (c *Claims) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}
