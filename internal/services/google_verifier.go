package services

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var (
	ErrFederatedSignInDisabled = errors.New("google sign-in is not configured")
	ErrInvalidGoogleCredential = errors.New("invalid google credential")
	ErrGoogleEmailUnverified   = errors.New("google account email is not verified")
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// validateFunc matches idtoken.Validate
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleIdentityVerifier checks Google ID tokens issued for this app's OAuth client
type GoogleIdentityVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleIdentityVerifier verifies tokens against clientID. An empty clientID disables Google sign-in.
func NewGoogleIdentityVerifier(clientID string) IdentityVerifierInterface {
	return &GoogleIdentityVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify validates the token signature, audience and expiry and returns the identity it asserts
func (v *GoogleIdentityVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, ErrFederatedSignInDisabled
	}
	if credential == "" {
		return nil, ErrInvalidGoogleCredential
	}

	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleCredential, err)
	}

	if !googleIssuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidGoogleCredential, payload.Issuer)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidGoogleCredential)
	}

	identity := &GoogleIdentity{
		Subject:       payload.Subject,
		Email:         stringClaim(payload.Claims, "email"),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
		Name:          stringClaim(payload.Claims, "name"),
	}
	if identity.Email == "" || !identity.EmailVerified {
		return nil, ErrGoogleEmailUnverified
	}

	return identity, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// boolClaim accepts both JSON booleans and the "true" string some Google tokens carry
func boolClaim(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
