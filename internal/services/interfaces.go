package services

import (
	"context"
	"time"

	"money-tracker/internal/aggregation"
	"money-tracker/internal/dto"
	"money-tracker/internal/editor"
	"money-tracker/internal/models"
	"money-tracker/internal/query"

	"github.com/google/uuid"
)

// RequestMeta identifies where a request came from, for the audit trail
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// TransactionServiceInterface owns the caller's transactions. Every call is scoped to caller.
type TransactionServiceInterface interface {
	Get(ctx context.Context, caller, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, spec query.FilterSpec) ([]models.Transaction, error)
	Submit(ctx context.Context, caller uuid.UUID, existing *models.Transaction, form editor.Form, meta RequestMeta) (*models.Transaction, error)
	Delete(ctx context.Context, caller, id uuid.UUID, confirmed bool, meta RequestMeta) error
}

// SummaryServiceInterface derives month summaries
type SummaryServiceInterface interface {
	Summary(ctx context.Context, caller uuid.UUID, selectedMonth string, mode aggregation.Mode, scope aggregation.MonthScope) (*aggregation.View, error)
	Compute(records []aggregation.Record, selectedMonth string, mode aggregation.Mode, scope aggregation.MonthScope) (*aggregation.View, error)
}

// AuthServiceInterface handles sign-up, sign-in and token lifecycle
type AuthServiceInterface interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest, meta RequestMeta) (*models.User, *dto.TokenResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest, meta RequestMeta) (*dto.TokenResponse, error)
	SignInWithGoogle(ctx context.Context, credential string, meta RequestMeta) (*dto.TokenResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string, meta RequestMeta) (*dto.TokenResponse, error)
	SignOut(ctx context.Context, accessToken string, meta RequestMeta) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// TokenServiceInterface issues and validates JWTs
type TokenServiceInterface interface {
	IssueAccessToken(user *models.User) (string, time.Time, error)
	IssueRefreshToken(userID uuid.UUID) (string, time.Time, error)
	ParseAccessToken(raw string) (*models.CustomClaims, error)
	ParseRefreshToken(raw string) (*models.CustomClaims, error)
	BearerToken(authHeader string) (string, error)
	PeekClaims(raw string) (*models.CustomClaims, error)
}

// PasswordServiceInterface hashes and checks passwords
type PasswordServiceInterface interface {
	ValidatePassword(password string) error
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
}

// GoogleIdentity is the verified subset of a Google ID token
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IdentityVerifierInterface verifies federated sign-in credentials
type IdentityVerifierInterface interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

// ActivityServiceInterface records and reads the audit trail
type ActivityServiceInterface interface {
	Record(ctx context.Context, entry *models.AuditLog)
	List(ctx context.Context, userID uuid.UUID, action string, offset, limit int) ([]models.AuditLog, int64, error)
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// MetricsRecorderInterface is the metrics sink used by services and handlers
type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

// CircuitBreakerInterface guards calls to an unreliable dependency
type CircuitBreakerInterface interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
	GetState() BreakerState
	Reset()
	GetFailureCount() int
}
