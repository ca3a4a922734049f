package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"money-tracker/internal/models"
	"money-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidUserID   = errors.New("invalid user ID")
	ErrInvalidAuditLog = errors.New("invalid audit log")
)

var validActions = map[string]bool{
	models.AuditActionRegister:           true,
	models.AuditActionLogin:              true,
	models.AuditActionGoogleLogin:        true,
	models.AuditActionFailedLogin:        true,
	models.AuditActionAccountLocked:      true,
	models.AuditActionTokenRefresh:       true,
	models.AuditActionLogout:             true,
	models.AuditActionTransactionCreated: true,
	models.AuditActionTransactionUpdated: true,
	models.AuditActionTransactionDeleted: true,
}

// ValidateActivityType validates that the activity type is one of the allowed types
func ValidateActivityType(action string) error {
	if !validActions[action] {
		return fmt.Errorf("invalid activity type: %s", action)
	}
	return nil
}

// AuditService writes and reads the per-user audit trail
type AuditService struct {
	repo   repositories.AuditLogRepositoryInterface
	logger *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo repositories.AuditLogRepositoryInterface, logger *slog.Logger) ActivityServiceInterface {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// Record stores entry. Failures are logged and never reach the caller.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry == nil {
		s.logger.ErrorContext(ctx, "failed to create audit log", "error", ErrInvalidAuditLog)
		return
	}
	if err := ValidateActivityType(entry.Action); err != nil {
		s.logger.ErrorContext(ctx, "failed to create audit log", "error", err)
		return
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to create audit log",
			"error", err,
			"action", entry.Action,
			"resource", entry.Resource,
			"resource_id", entry.ResourceID)
	}
}

// List returns a page of userID's activity, newest first
func (s *AuditService) List(ctx context.Context, userID uuid.UUID, action string, offset, limit int) ([]models.AuditLog, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, ErrInvalidUserID
	}
	if action != "" {
		if err := ValidateActivityType(action); err != nil {
			return nil, 0, err
		}
	}

	logs, total, err := s.repo.ListByUser(ctx, userID, action, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, total, nil
}

// Purge removes entries older than the retention window
func (s *AuditService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	return s.repo.DeleteOlderThan(ctx, olderThan)
}

func newAuditEntry(userID *uuid.UUID, action, resource, resourceID string, meta RequestMeta, metadata models.JSONBMap) *models.AuditLog {
	return &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Metadata:   metadata,
	}
}
