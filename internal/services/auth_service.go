package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"money-tracker/internal/dto"
	"money-tracker/internal/models"
	"money-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountLocked       = errors.New("account is locked due to too many failed attempts")
	ErrUserAlreadyExists   = errors.New("user with this email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo             repositories.UserRepositoryInterface
	refreshTokenRepo     repositories.RefreshTokenRepositoryInterface
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface
	activity             ActivityServiceInterface
	passwordService      PasswordServiceInterface
	tokenService         TokenServiceInterface
	identityVerifier     IdentityVerifierInterface
	metrics              MetricsRecorderInterface
	logger               *slog.Logger
	lockoutDuration      time.Duration
}

// NewAuthService creates a new authentication service. A locked account unlocks
// itself after lockoutDuration; zero keeps it locked.
func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface,
	activity ActivityServiceInterface,
	passwordService PasswordServiceInterface,
	tokenService TokenServiceInterface,
	identityVerifier IdentityVerifierInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
	lockoutDuration time.Duration,
) AuthServiceInterface {
	return &AuthService{
		userRepo:             userRepo,
		refreshTokenRepo:     refreshTokenRepo,
		blacklistedTokenRepo: blacklistedTokenRepo,
		activity:             activity,
		passwordService:      passwordService,
		tokenService:         tokenService,
		identityVerifier:     identityVerifier,
		metrics:              metrics,
		logger:               logger,
		lockoutDuration:      lockoutDuration,
	}
}

// SignUp creates an email/password account and signs it in
func (s *AuthService) SignUp(ctx context.Context, req *dto.SignUpRequest, meta RequestMeta) (*models.User, *dto.TokenResponse, error) {
	email := models.NormalizeEmail(req.Email)

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		s.audit(ctx, nil, models.AuditActionRegister, models.AuditResourceUser, "", meta,
			models.JSONBMap{"email": email, "reason": "email_already_exists"})
		return nil, nil, ErrUserAlreadyExists
	}

	hashedPassword, err := s.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Provider:     models.ProviderPassword,
	}
	user.UpdateLastLogin()

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, nil, ErrUserAlreadyExists
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.audit(ctx, &user.ID, models.AuditActionRegister, models.AuditResourceUser, user.ID.String(), meta, nil)
	s.recordAuthEvent("register")

	return user, tokens, nil
}

// SignIn authenticates an email/password user and returns tokens
func (s *AuthService) SignIn(ctx context.Context, req *dto.SignInRequest, meta RequestMeta) (*dto.TokenResponse, error) {
	email := models.NormalizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.auditFailedLogin(ctx, email, meta, "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.checkLock(ctx, user); err != nil {
		s.auditFailedLogin(ctx, email, meta, "account_locked")
		return nil, err
	}

	if !user.HasPassword() || !s.passwordService.ComparePassword(req.Password, user.PasswordHash) {
		user.IncrementFailedAttempts()
		if err := s.userRepo.UpdateFailedLoginAttempts(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to update login attempts",
				"error", err,
				"user_id", user.ID)
		}

		if user.IsLocked() {
			s.audit(ctx, &user.ID, models.AuditActionAccountLocked, models.AuditResourceUser, user.ID.String(), meta, nil)
			s.recordAuthEvent("account_locked")
		}

		s.auditFailedLogin(ctx, email, meta, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.userRepo.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login attempts",
				"error", err,
				"user_id", user.ID)
		}
		user.ResetFailedAttempts()
	}

	tokens, err := s.completeSignIn(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, models.AuditActionLogin, models.AuditResourceUser, user.ID.String(), meta, nil)
	s.recordAuthEvent("login")

	return tokens, nil
}

// SignInWithGoogle verifies a Google ID token and signs in the matching user.
// A first-time Google user is created; a password user with the same verified
// email gets the Google account linked.
func (s *AuthService) SignInWithGoogle(ctx context.Context, credential string, meta RequestMeta) (*dto.TokenResponse, error) {
	identity, err := s.identityVerifier.Verify(ctx, credential)
	if err != nil {
		s.auditFailedLogin(ctx, "", meta, "google_credential_rejected")
		return nil, err
	}

	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.checkLock(ctx, user); err != nil {
		s.auditFailedLogin(ctx, user.Email, meta, "account_locked")
		return nil, err
	}

	tokens, err := s.completeSignIn(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, models.AuditActionGoogleLogin, models.AuditResourceUser, user.ID.String(), meta, nil)
	s.recordAuthEvent("google_login")

	return tokens, nil
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, identity *GoogleIdentity) (*models.User, error) {
	user, err := s.userRepo.GetByGoogleSubject(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	subject := identity.Subject

	user, err = s.userRepo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		user.GoogleSubject = &subject
		if user.DisplayName == "" {
			user.DisplayName = identity.Name
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		s.logger.InfoContext(ctx, "Linked google account to existing user", "user_id", user.ID)
		return user, nil
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &models.User{
		Email:         identity.Email,
		DisplayName:   identity.Name,
		Provider:      models.ProviderGoogle,
		GoogleSubject: &subject,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.recordAuthEvent("register_google")

	return user, nil
}

// RefreshTokens rotates a refresh token: the presented one is revoked and a new pair issued
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, meta RequestMeta) (*dto.TokenResponse, error) {
	claims, err := s.tokenService.ParseRefreshToken(refreshToken)
	if err != nil {
		s.auditFailedTokenRefresh(ctx, "", meta, "invalid_token")
		return nil, ErrInvalidRefreshToken
	}

	userID, err := claims.Owner()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, models.HashRefreshToken(refreshToken))
	if err != nil {
		s.auditFailedTokenRefresh(ctx, claims.UserID, meta, "token_not_found")
		return nil, ErrInvalidRefreshToken
	}

	if !storedToken.UsableBy(userID) {
		s.auditFailedTokenRefresh(ctx, claims.UserID, meta, "token_expired_or_revoked")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
			// revoked concurrently by another refresh
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	s.audit(ctx, &user.ID, models.AuditActionTokenRefresh, models.AuditResourceToken, storedToken.ID.String(), meta, nil)
	s.recordAuthEvent("token_refresh")

	return tokens, nil
}

// SignOut blacklists the access token until it would have expired and revokes
// every refresh token of its user. A token that no longer verifies is still
// blacklisted by its JTI so it cannot be replayed.
func (s *AuthService) SignOut(ctx context.Context, accessToken string, meta RequestMeta) error {
	claims, err := s.tokenService.ParseAccessToken(accessToken)
	if err != nil {
		if peeked, peekErr := s.tokenService.PeekClaims(accessToken); peekErr == nil {
			revocation := peeked.Revocation(time.Now())
			revocation.UserID = uuid.Nil
			if err := s.blacklistedTokenRepo.Create(ctx, revocation); err != nil {
				s.logger.ErrorContext(ctx, "failed to blacklist unverified token",
					"error", err,
					"jti", revocation.JTI)
			}
		}
		return nil
	}

	userID, err := claims.Owner()
	if err != nil {
		return nil
	}

	if err := s.blacklistedTokenRepo.Create(ctx, claims.Revocation(time.Now())); err != nil {
		s.logger.ErrorContext(ctx, "failed to blacklist token",
			"error", err,
			"jti", claims.ID,
			"user_id", userID)
	}

	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke refresh tokens",
			"error", err,
			"user_id", userID)
	}

	s.audit(ctx, &userID, models.AuditActionLogout, models.AuditResourceUser, userID.String(), meta, nil)
	s.recordAuthEvent("logout")

	return nil
}

// CurrentUser returns the signed-in user
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, repositories.ErrUserNotFound
	}
	return s.userRepo.GetByID(ctx, userID)
}

// IsTokenBlacklisted reports whether jti was signed out
func (s *AuthService) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, err := s.blacklistedTokenRepo.GetByJTI(ctx, jti)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repositories.ErrTokenNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check token blacklist: %w", err)
}

// checkLock rejects locked users, unlocking them once the lockout has passed
func (s *AuthService) checkLock(ctx context.Context, user *models.User) error {
	if !user.IsLocked() {
		return nil
	}
	if s.lockoutDuration <= 0 || time.Since(*user.LockedAt) < s.lockoutDuration {
		return ErrAccountLocked
	}

	if err := s.userRepo.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}
	user.ResetFailedAttempts()
	user.LockedAt = nil
	return nil
}

func (s *AuthService) completeSignIn(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	user.UpdateLastLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			"error", err,
			"user_id", user.ID)
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return tokens, nil
}

func (s *AuthService) generateTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	accessToken, expiresAt, err := s.tokenService.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.tokenService.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.refreshTokenRepo.Create(ctx, models.NewRefreshToken(user.ID, refreshToken, refreshExpiresAt)); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) auditFailedLogin(ctx context.Context, email string, meta RequestMeta, reason string) {
	metadata := models.JSONBMap{"reason": reason}
	if email != "" {
		metadata["email"] = email
	}
	s.audit(ctx, nil, models.AuditActionFailedLogin, models.AuditResourceUser, "", meta, metadata)
	s.recordAuthEvent("failed_login")
}

func (s *AuthService) auditFailedTokenRefresh(ctx context.Context, userID string, meta RequestMeta, reason string) {
	var uid *uuid.UUID
	if id, err := uuid.Parse(userID); err == nil {
		uid = &id
	}
	s.audit(ctx, uid, models.AuditActionTokenRefresh, models.AuditResourceToken, "", meta, models.JSONBMap{"reason": reason})
	s.recordAuthEvent("failed_token_refresh")
}

func (s *AuthService) audit(ctx context.Context, userID *uuid.UUID, action, resource, resourceID string, meta RequestMeta, metadata models.JSONBMap) {
	s.activity.Record(ctx, newAuditEntry(userID, action, resource, resourceID, meta, metadata))
}

func (s *AuthService) recordAuthEvent(eventType string) {
	s.metrics.IncrementCounter(MetricAuthenticationEvent, map[string]string{"event_type": eventType})
}
