package services

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"money-tracker/internal/config"
	"money-tracker/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token is expired")
	ErrInvalidIssuer     = errors.New("invalid issuer")
	ErrInvalidTokenType  = errors.New("invalid token type")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
)

const bearerScheme = "bearer "

// TokenService signs and checks RS256 session tokens. The subject of every
// token is the owner's user ID, the key all transaction queries are scoped by.
type TokenService struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	signer     *rsa.PrivateKey
	verifier   *rsa.PublicKey
	now        func() time.Time
}

// NewTokenService creates a token service from JWT configuration
func NewTokenService(jwtConfig *config.JWTConfig) TokenServiceInterface {
	return &TokenService{
		issuer:     jwtConfig.Issuer,
		accessTTL:  jwtConfig.AccessTokenDuration,
		refreshTTL: jwtConfig.RefreshTokenDuration,
		signer:     jwtConfig.PrivateKey,
		verifier:   jwtConfig.PublicKey,
		now:        time.Now,
	}
}

// IssueAccessToken opens a session for user, recording how they signed in
func (ts *TokenService) IssueAccessToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", time.Time{}, models.ErrTokenOwner
	}

	claims, expiresAt := ts.claimsFor(user.ID, models.TokenTypeAccess, ts.accessTTL)
	claims.Email = user.Email
	claims.Provider = user.Provider

	signed, err := ts.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken creates the long-lived token that rotates a session
func (ts *TokenService) IssueRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, models.ErrTokenOwner
	}

	claims, expiresAt := ts.claimsFor(userID, models.TokenTypeRefresh, ts.refreshTTL)

	signed, err := ts.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies an access token and returns its claims
func (ts *TokenService) ParseAccessToken(raw string) (*models.CustomClaims, error) {
	return ts.parse(raw, models.TokenTypeAccess)
}

// ParseRefreshToken verifies a refresh token and returns its claims
func (ts *TokenService) ParseRefreshToken(raw string) (*models.CustomClaims, error) {
	return ts.parse(raw, models.TokenTypeRefresh)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header
func (ts *TokenService) BearerToken(authHeader string) (string, error) {
	if len(authHeader) < len(bearerScheme) || !strings.EqualFold(authHeader[:len(bearerScheme)], bearerScheme) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimSpace(authHeader[len(bearerScheme):])
	if token == "" {
		return "", ErrInvalidAuthHeader
	}
	return token, nil
}

// PeekClaims decodes a token without checking its signature or expiry.
// Sign-out uses it to revoke a token that no longer verifies.
func (ts *TokenService) PeekClaims(raw string) (*models.CustomClaims, error) {
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := &models.CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (ts *TokenService) claimsFor(owner uuid.UUID, tokenType string, ttl time.Duration) (*models.CustomClaims, time.Time) {
	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	return &models.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   owner.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    owner.String(),
		TokenType: tokenType,
	}, expiresAt
}

func (ts *TokenService) sign(claims *models.CustomClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.signer)
}

func (ts *TokenService) parse(raw, tokenType string) (*models.CustomClaims, error) {
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := &models.CustomClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, ts.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Issuer != ts.issuer {
		return nil, ErrInvalidIssuer
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidTokenType
	}
	if _, err := claims.Owner(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != claims.UserID {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenService) keyFunc(*jwt.Token) (any, error) {
	return ts.verifier, nil
}
