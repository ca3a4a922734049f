package services

import (
	"context"
	"log/slog"
	"time"

	"money-tracker/internal/aggregation"
	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/query"
	"money-tracker/internal/repositories"

	"github.com/google/uuid"
)

// SummaryService computes month summaries over a caller's stored transactions
// or over records supplied by a client.
type SummaryService struct {
	repo         repositories.TransactionRepositoryInterface
	metrics      MetricsRecorderInterface
	logger       *slog.Logger
	defaultScope aggregation.MonthScope
	now          func() time.Time
}

// NewSummaryService creates a summary service. defaultScope applies when a call passes an empty scope.
func NewSummaryService(
	repo repositories.TransactionRepositoryInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
	defaultScope aggregation.MonthScope,
) SummaryServiceInterface {
	if !defaultScope.IsValid() {
		defaultScope = aggregation.MonthScopeAllHistory
	}
	return &SummaryService{
		repo:         repo,
		metrics:      metrics,
		logger:       logger,
		defaultScope: defaultScope,
		now:          time.Now,
	}
}

// Summary loads every transaction of caller and aggregates it
func (s *SummaryService) Summary(ctx context.Context, caller uuid.UUID, selectedMonth string, mode aggregation.Mode, scope aggregation.MonthScope) (*aggregation.View, error) {
	spec, err := query.ForOwner(caller)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}

	return s.compute("store", aggregation.FromTransactions(transactions), selectedMonth, mode, scope)
}

// Compute aggregates client-supplied records without touching the store
func (s *SummaryService) Compute(records []aggregation.Record, selectedMonth string, mode aggregation.Mode, scope aggregation.MonthScope) (*aggregation.View, error) {
	return s.compute("request", records, selectedMonth, mode, scope)
}

func (s *SummaryService) compute(source string, records []aggregation.Record, selectedMonth string, mode aggregation.Mode, scope aggregation.MonthScope) (*aggregation.View, error) {
	if scope == "" {
		scope = s.defaultScope
	}
	if !scope.IsValid() {
		return nil, apperrors.NewFieldValidation("month_scope", "must be one of: all selected")
	}

	start := time.Now()
	aggregator := aggregation.New(
		aggregation.WithMonthScope(scope),
		aggregation.WithClock(s.now),
		aggregation.WithLogger(s.logger),
		aggregation.WithParseErrorHook(func(_ int, err *apperrors.ParseError) {
			s.metrics.IncrementCounter(MetricAggregationParseError, map[string]string{"field": err.Field})
		}),
	)

	view, err := aggregator.Compute(records, selectedMonth, mode)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(MetricAggregationComputed, map[string]string{
		"source": source,
		"mode":   string(mode),
	})
	s.metrics.RecordProcessingTime(MetricAggregationDuration, time.Since(start))

	return view, nil
}
