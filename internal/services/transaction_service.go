package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"money-tracker/internal/changefeed"
	"money-tracker/internal/editor"
	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"
	"money-tracker/internal/query"
	"money-tracker/internal/repositories"

	"github.com/google/uuid"
)

// ErrConfirmationRequired is returned by Delete until the caller confirms
var ErrConfirmationRequired = errors.New("deleting a transaction must be confirmed")

// ChangePublisher announces committed mutations to subscribers
type ChangePublisher interface {
	Publish(ctx context.Context, change changefeed.Change) error
}

// LocalNotifier refreshes this instance's subscriptions directly. It is used
// when a change could not be published to the feed.
type LocalNotifier interface {
	Notify(ctx context.Context, ownerID uuid.UUID) error
}

// TransactionService owns create, edit, delete and reads of a caller's transactions
type TransactionService struct {
	repo        repositories.TransactionRepositoryInterface
	publisher   ChangePublisher
	breaker     CircuitBreakerInterface
	notifier    LocalNotifier
	activity    ActivityServiceInterface
	auditLogger *AuditLogger
	metrics     MetricsRecorderInterface
	logger      *slog.Logger
}

// NewTransactionService creates a new transaction service. notifier may be nil.
func NewTransactionService(
	repo repositories.TransactionRepositoryInterface,
	publisher ChangePublisher,
	breaker CircuitBreakerInterface,
	notifier LocalNotifier,
	activity ActivityServiceInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) TransactionServiceInterface {
	return &TransactionService{
		repo:        repo,
		publisher:   publisher,
		breaker:     breaker,
		notifier:    notifier,
		activity:    activity,
		auditLogger: NewAuditLogger(logger),
		metrics:     metrics,
		logger:      logger,
	}
}

// Get returns one of caller's transactions
func (s *TransactionService) Get(ctx context.Context, caller, id uuid.UUID) (*models.Transaction, error) {
	if caller == uuid.Nil {
		return nil, apperrors.ErrNoCaller
	}

	tx, err := s.repo.GetByID(ctx, caller, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, err
		}
		return nil, apperrors.NewStoreError("get", err)
	}
	return tx, nil
}

// List returns the transactions matching spec, newest date first
func (s *TransactionService) List(ctx context.Context, spec query.FilterSpec) ([]models.Transaction, error) {
	if spec.IsZero() {
		return nil, apperrors.ErrNoCaller
	}

	transactions, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}
	return transactions, nil
}

// Submit validates form and stores it for caller. A nil existing creates a new
// transaction; otherwise existing is updated in place.
func (s *TransactionService) Submit(ctx context.Context, caller uuid.UUID, existing *models.Transaction, form editor.Form, meta RequestMeta) (*models.Transaction, error) {
	op := changefeed.OpCreate
	action := models.AuditActionTransactionCreated
	if existing != nil {
		op = changefeed.OpUpdate
		action = models.AuditActionTransactionUpdated
	}

	if caller == uuid.Nil {
		return nil, apperrors.ErrNoCaller
	}
	if existing != nil && existing.OwnerID != caller {
		return nil, repositories.ErrTransactionNotFound
	}

	start := time.Now()
	ed := editor.New(s.repo)

	var err error
	if existing == nil {
		err = ed.BeginCreate()
	} else {
		err = ed.BeginEdit(existing)
	}
	if err != nil {
		return nil, err
	}
	if err := ed.SetForm(form); err != nil {
		return nil, err
	}

	tx, err := ed.Submit(ctx, caller)
	if err != nil {
		s.recordMutation(string(op), "failed")
		if _, ok := apperrors.AsStore(err); ok {
			s.auditLogger.LogTransactionMutationFailed(ctx, caller, string(op), err)
		}
		return nil, err
	}

	duration := time.Since(start)
	s.recordMutation(string(op), "success")
	s.metrics.RecordProcessingTime(MetricTransactionDuration, duration)
	s.auditLogger.LogTransactionMutation(ctx, caller, tx.ID, string(op), duration)
	s.activity.Record(ctx, newAuditEntry(&caller, action, models.AuditResourceTransaction, tx.ID.String(), meta,
		models.JSONBMap{"category": string(tx.Category), "type": string(tx.Type)}))

	s.announce(ctx, changefeed.NewChange(caller, tx.ID, op))

	return tx, nil
}

// Delete removes one of caller's transactions. Nothing is removed unless confirmed.
func (s *TransactionService) Delete(ctx context.Context, caller, id uuid.UUID, confirmed bool, meta RequestMeta) error {
	if caller == uuid.Nil {
		return apperrors.ErrNoCaller
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	start := time.Now()
	op := string(changefeed.OpDelete)

	if err := s.repo.Delete(ctx, caller, id); err != nil {
		s.recordMutation(op, "failed")
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return err
		}
		s.auditLogger.LogTransactionMutationFailed(ctx, caller, op, err)
		return apperrors.NewStoreError(op, err)
	}

	duration := time.Since(start)
	s.recordMutation(op, "success")
	s.metrics.RecordProcessingTime(MetricTransactionDuration, duration)
	s.auditLogger.LogTransactionMutation(ctx, caller, id, op, duration)
	s.activity.Record(ctx, newAuditEntry(&caller, models.AuditActionTransactionDeleted, models.AuditResourceTransaction, id.String(), meta, nil))

	s.announce(ctx, changefeed.NewChange(caller, id, changefeed.OpDelete))

	return nil
}

// announce publishes a committed change. The mutation already succeeded, so a
// failed publish is logged and this instance's subscribers are refreshed directly.
func (s *TransactionService) announce(ctx context.Context, change changefeed.Change) {
	if s.breaker.IsOpen() {
		s.metrics.IncrementCounter(MetricChangePublishSkipped, nil)
		s.logger.WarnContext(ctx, "Change feed circuit open, notifying locally",
			"owner_id", change.OwnerID,
			"transaction_id", change.TransactionID)
		s.notifyLocal(ctx, change.OwnerID)
		return
	}

	if err := s.publisher.Publish(ctx, change); err != nil {
		s.breaker.RecordFailure()
		s.metrics.IncrementCounter(MetricChangePublishFailed, nil)
		s.auditLogger.LogChangePublishFailed(ctx, change.OwnerID, change.TransactionID, err)
		s.notifyLocal(ctx, change.OwnerID)
		return
	}
	s.breaker.RecordSuccess()
}

func (s *TransactionService) notifyLocal(ctx context.Context, ownerID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ownerID); err != nil {
		s.logger.WarnContext(ctx, "Local subscription refresh failed",
			"owner_id", ownerID,
			"error", err)
	}
}

func (s *TransactionService) recordMutation(operation, status string) {
	s.metrics.IncrementCounter(MetricTransactionMutation, map[string]string{
		"operation": operation,
		"status":    status,
	})
}
