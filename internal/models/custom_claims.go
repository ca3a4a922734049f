package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Values of the token_type claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// signedOutGrace keeps a revoked token without an exp claim blacklisted for a day
const signedOutGrace = 24 * time.Hour

var ErrTokenOwner = errors.New("token does not name a user")

// CustomClaims is the JWT payload. Both token types carry the owner's ID;
// access tokens add the email and the provider the session was opened with.
type CustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Provider  string `json:"provider,omitempty"`
	TokenType string `json:"token_type"`
}

// Owner returns the user the token was issued to
func (c *CustomClaims) Owner() (uuid.UUID, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrTokenOwner
	}
	return id, nil
}

// IsGoogleSession reports whether the session was opened with a Google credential
func (c *CustomClaims) IsGoogleSession() bool {
	return c.Provider == ProviderGoogle
}

// Revocation builds the blacklist entry that rejects this token until it would
// have expired on its own. An unknown owner is recorded as uuid.Nil.
func (c *CustomClaims) Revocation(now time.Time) *BlacklistedToken {
	owner, _ := c.Owner()

	expiresAt := now.Add(signedOutGrace)
	if c.ExpiresAt != nil && c.ExpiresAt.After(now) {
		expiresAt = c.ExpiresAt.Time
	}

	return &BlacklistedToken{
		JTI:           c.ID,
		UserID:        owner,
		ExpiresAt:     expiresAt,
		BlacklistedAt: now,
	}
}
