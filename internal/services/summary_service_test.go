package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"money-tracker/internal/aggregation"
	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"
	"money-tracker/internal/query"
	"money-tracker/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SummaryServiceTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	repo    *repository_mocks.MockTransactionRepositoryInterface
	metrics *countingMetrics
	service *SummaryService
	caller  uuid.UUID
	ctx     context.Context
}

func (s *SummaryServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.repo = repository_mocks.NewMockTransactionRepositoryInterface(s.ctrl)
	s.metrics = newCountingMetrics()
	s.service = NewSummaryService(s.repo, s.metrics, discardLogger(), aggregation.MonthScopeAllHistory).(*SummaryService)
	s.service.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	s.caller = uuid.New()
	s.ctx = context.Background()
}

func (s *SummaryServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSummaryServiceSuite(t *testing.T) {
	suite.Run(t, new(SummaryServiceTestSuite))
}

func tx(amount int64, txType models.TransactionType, year int, month time.Month, day int) models.Transaction {
	return models.Transaction{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(amount),
		Type:   txType,
		Date:   time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
	}
}

func (s *SummaryServiceTestSuite) expectStored(transactions ...models.Transaction) {
	spec, err := query.ForOwner(s.caller)
	s.Require().NoError(err)
	s.repo.EXPECT().List(gomock.Any(), spec).Return(transactions, nil)
}

func (s *SummaryServiceTestSuite) TestSummary_DayMode() {
	s.expectStored(
		tx(3000, models.TransactionTypeIncome, 2024, time.March, 1),
		tx(40, models.TransactionTypeExpense, 2024, time.March, 5),
		tx(60, models.TransactionTypeExpense, 2024, time.March, 5),
		tx(25, models.TransactionTypeExpense, 2024, time.February, 14),
	)

	view, err := s.service.Summary(s.ctx, s.caller, "2024-03", aggregation.ModeDay, "")

	s.Require().NoError(err)
	s.Equal([]string{"2024-03", "2024-02"}, view.Months)
	s.Equal("3000", view.TotalIncome.String())
	s.Equal("100", view.TotalExpense.String())
	s.Equal("2900", view.TotalBalance.String())
	s.Require().Len(view.ChartSeries, 1)
	s.Equal("2024-03-05", view.ChartSeries[0].Key)
	s.Equal(aggregation.MonthScopeAllHistory, view.MonthScope)
	s.Equal(1, s.metrics.count(MetricAggregationComputed+"|source=store"))
	s.Equal(1, s.metrics.durations[MetricAggregationDuration])
}

func (s *SummaryServiceTestSuite) TestSummary_MonthModeScopes() {
	stored := []models.Transaction{
		tx(40, models.TransactionTypeExpense, 2024, time.March, 5),
		tx(25, models.TransactionTypeExpense, 2024, time.February, 14),
	}
	s.expectStored(stored...)
	s.expectStored(stored...)

	all, err := s.service.Summary(s.ctx, s.caller, "2024-03", aggregation.ModeMonth, aggregation.MonthScopeAllHistory)
	s.Require().NoError(err)
	s.Len(all.ChartSeries, 2)

	selected, err := s.service.Summary(s.ctx, s.caller, "2024-03", aggregation.ModeMonth, aggregation.MonthScopeSelectedMonth)
	s.Require().NoError(err)
	s.Require().Len(selected.ChartSeries, 1)
	s.Equal("2024-03", selected.ChartSeries[0].Key)
}

func (s *SummaryServiceTestSuite) TestSummary_DefaultsToCurrentMonth() {
	s.expectStored(tx(10, models.TransactionTypeExpense, 2024, time.March, 2))

	view, err := s.service.Summary(s.ctx, s.caller, "", aggregation.ModeDay, "")

	s.Require().NoError(err)
	s.Equal("2024-03", view.SelectedMonth)
	s.Equal("10", view.TotalExpense.String())
}

func (s *SummaryServiceTestSuite) TestSummary_NoCaller() {
	_, err := s.service.Summary(s.ctx, uuid.Nil, "2024-03", aggregation.ModeDay, "")

	_, ok := apperrors.AsAuth(err)
	s.True(ok)
}

func (s *SummaryServiceTestSuite) TestSummary_StoreError() {
	s.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("unavailable"))

	_, err := s.service.Summary(s.ctx, s.caller, "2024-03", aggregation.ModeDay, "")

	storeErr, ok := apperrors.AsStore(err)
	s.Require().True(ok)
	s.Equal("list", storeErr.Op)
}

func (s *SummaryServiceTestSuite) TestCompute_MalformedRecordsAreCounted() {
	records := []aggregation.Record{
		{Amount: "12.50", Type: "expense", Date: "2024-03-01"},
		{Amount: "abc", Type: "expense", Date: "2024-03-02"},
		{Amount: "5", Type: "expense", Date: "not-a-date"},
	}

	view, err := s.service.Compute(records, "2024-03", aggregation.ModeDay, aggregation.MonthScopeSelectedMonth)

	s.Require().NoError(err)
	s.Equal(1, view.Excluded)
	s.Equal(1, view.Zeroed)
	s.Equal("12.5", view.TotalExpense.String())
	s.Equal(1, s.metrics.count(MetricAggregationParseError+"|field=amount"))
	s.Equal(1, s.metrics.count(MetricAggregationParseError+"|field=date"))
	s.Equal(1, s.metrics.count(MetricAggregationComputed+"|source=request"))
}

func (s *SummaryServiceTestSuite) TestCompute_InvalidArguments() {
	_, err := s.service.Compute(nil, "2024-03", aggregation.Mode("week"), "")
	_, ok := apperrors.AsValidation(err)
	s.True(ok)

	_, err = s.service.Compute(nil, "2024-03", aggregation.ModeDay, aggregation.MonthScope("forever"))
	validation, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(validation.Fields, "month_scope")

	_, err = s.service.Compute(nil, "March", aggregation.ModeDay, "")
	validation, ok = apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(validation.Fields, "month")
}

func (s *SummaryServiceTestSuite) TestNewSummaryService_InvalidDefaultScope() {
	service := NewSummaryService(s.repo, s.metrics, discardLogger(), aggregation.MonthScope("bogus")).(*SummaryService)
	s.Equal(aggregation.MonthScopeAllHistory, service.defaultScope)
}
