package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID attaches a request trace ID to ctx for structured log events
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// AuditLogger writes structured slog events for transaction writes and feed health
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

func (al *AuditLogger) LogTransactionMutation(ctx context.Context, ownerID, transactionID uuid.UUID, operation string, duration time.Duration) {
	al.logger.InfoContext(ctx, "transaction mutation",
		slog.String("event_type", "transaction_mutation"),
		slog.String("owner_id", ownerID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.String("operation", operation),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.String("correlation_id", CorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogTransactionMutationFailed(ctx context.Context, ownerID uuid.UUID, operation string, err error) {
	al.logger.WarnContext(ctx, "transaction mutation failed",
		slog.String("event_type", "transaction_mutation_failed"),
		slog.String("owner_id", ownerID.String()),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("correlation_id", CorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogChangePublishFailed(ctx context.Context, ownerID, transactionID uuid.UUID, err error) {
	al.logger.WarnContext(ctx, "change notification not published",
		slog.String("event_type", "change_publish_failed"),
		slog.String("owner_id", ownerID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.String("error", err.Error()),
		slog.String("correlation_id", CorrelationID(ctx)),
	)
}

func (al *AuditLogger) LogCircuitBreakerStateChange(service string, oldState, newState BreakerState) {
	al.logger.Warn("circuit breaker state change",
		slog.String("event_type", "circuit_breaker_state_change"),
		slog.String("service", service),
		slog.String("old_state", oldState.String()),
		slog.String("new_state", newState.String()),
		slog.Time("timestamp", time.Now()),
	)
}

// CorrelationID returns the request correlation ID stored in ctx, if any
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}

	return ""
}
