package models

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomClaims_Owner(t *testing.T) {
	id := uuid.New()

	owner, err := (&CustomClaims{UserID: id.String()}).Owner()
	require.NoError(t, err)
	assert.Equal(t, id, owner)

	for _, raw := range []string{"", "not-a-uuid", uuid.Nil.String()} {
		_, err := (&CustomClaims{UserID: raw}).Owner()
		assert.ErrorIs(t, err, ErrTokenOwner, raw)
	}
}

func TestCustomClaims_IsGoogleSession(t *testing.T) {
	assert.True(t, (&CustomClaims{Provider: ProviderGoogle}).IsGoogleSession())
	assert.False(t, (&CustomClaims{Provider: ProviderPassword}).IsGoogleSession())
	assert.False(t, (&CustomClaims{}).IsGoogleSession())
}

func TestCustomClaims_RevocationLastsUntilExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := uuid.New()
	claims := &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-123",
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		UserID:    owner.String(),
		TokenType: TokenTypeAccess,
	}

	entry := claims.Revocation(now)

	assert.Equal(t, "jti-123", entry.JTI)
	assert.Equal(t, owner, entry.UserID)
	assert.True(t, entry.ExpiresAt.Equal(now.Add(15*time.Minute)))
	assert.Equal(t, now, entry.BlacklistedAt)
}

func TestCustomClaims_RevocationOfExpiredOrOpenEndedToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		claims CustomClaims
	}{
		{
			name: "already expired",
			claims: CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti-old",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}},
		},
		{
			name:   "no exp claim",
			claims: CustomClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti-open"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.claims.Revocation(now)
			assert.Equal(t, uuid.Nil, entry.UserID)
			assert.True(t, entry.ExpiresAt.Equal(now.Add(signedOutGrace)))
		})
	}
}

func TestBlacklistedToken_IsExpired(t *testing.T) {
	live := BlacklistedToken{ExpiresAt: time.Now().Add(time.Hour)}
	stale := BlacklistedToken{ExpiresAt: time.Now().Add(-time.Hour)}

	assert.False(t, live.IsExpired())
	assert.True(t, stale.IsExpired())
}
