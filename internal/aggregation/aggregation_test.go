package aggregation

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quietAggregator(opts ...Option) *Aggregator {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}
	return New(append(base, opts...)...)
}

func TestCompute_DayModeScenario(t *testing.T) {
	records := []Record{
		{Amount: "100", Type: "income", Date: "2024-01-05"},
		{Amount: "40", Type: "expense", Date: "2024-01-05"},
		{Amount: "20", Type: "expense", Date: "2024-01-06"},
	}

	view, err := quietAggregator().Compute(records, "2024-01", ModeDay)
	require.NoError(t, err)

	assert.True(t, dec("100").Equal(view.TotalIncome))
	assert.True(t, dec("60").Equal(view.TotalExpense))
	assert.True(t, dec("40").Equal(view.TotalBalance))
	require.Len(t, view.ChartSeries, 2)
	assert.Equal(t, "2024-01-05", view.ChartSeries[0].Key)
	assert.True(t, dec("40").Equal(view.ChartSeries[0].Amount))
	assert.Equal(t, "2024-01-06", view.ChartSeries[1].Key)
	assert.True(t, dec("20").Equal(view.ChartSeries[1].Amount))
	assert.Equal(t, []string{"2024-01"}, view.Months)
	assert.Zero(t, view.Excluded)
	assert.Zero(t, view.Zeroed)
}

func TestCompute_MonthsDeduplicatedAndDescending(t *testing.T) {
	records := []Record{
		{Amount: "1", Type: "expense", Date: "2024-01-15"},
		{Amount: "1", Type: "expense", Date: "2024-03-02"},
		{Amount: "1", Type: "income", Date: "2024-01-20"},
	}

	view, err := quietAggregator().Compute(records, "2024-01", ModeDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03", "2024-01"}, view.Months)
}

func TestCompute_EmptyList(t *testing.T) {
	view, err := quietAggregator().Compute(nil, "2024-01", ModeMonth)
	require.NoError(t, err)

	assert.Empty(t, view.Months)
	assert.Empty(t, view.ChartSeries)
	assert.True(t, view.TotalIncome.IsZero())
	assert.True(t, view.TotalExpense.IsZero())
	assert.True(t, view.TotalBalance.IsZero())
}

func TestCompute_MonthModeSpansAllHistoryByDefault(t *testing.T) {
	records := []Record{
		{Amount: "10.10", Type: "expense", Date: "2023-12-31"},
		{Amount: "5.05", Type: "expense", Date: "2024-01-01"},
		{Amount: "4.95", Type: "expense", Date: "2024-01-31"},
		{Amount: "999", Type: "income", Date: "2024-01-10"},
		{Amount: "7", Type: "expense", Date: "2024-02-01"},
	}

	view, err := quietAggregator().Compute(records, "2024-01", ModeMonth)
	require.NoError(t, err)

	require.Len(t, view.ChartSeries, 3)
	assert.Equal(t, "2023-12", view.ChartSeries[0].Key)
	assert.Equal(t, "2024-01", view.ChartSeries[1].Key)
	assert.True(t, dec("10").Equal(view.ChartSeries[1].Amount))
	assert.Equal(t, "2024-02", view.ChartSeries[2].Key)
	assert.Equal(t, MonthScopeAllHistory, view.MonthScope)

	// totals stay restricted to the selected month in either mode
	assert.True(t, dec("999").Equal(view.TotalIncome))
	assert.True(t, dec("10").Equal(view.TotalExpense))
}

func TestCompute_MonthModeSelectedScope(t *testing.T) {
	records := []Record{
		{Amount: "10", Type: "expense", Date: "2023-12-31"},
		{Amount: "5", Type: "expense", Date: "2024-01-01"},
	}

	view, err := quietAggregator(WithMonthScope(MonthScopeSelectedMonth)).Compute(records, "2024-01", ModeMonth)
	require.NoError(t, err)

	require.Len(t, view.ChartSeries, 1)
	assert.Equal(t, "2024-01", view.ChartSeries[0].Key)
	assert.Equal(t, MonthScopeSelectedMonth, view.MonthScope)
}

func TestCompute_DecimalSummationHasNoDrift(t *testing.T) {
	records := make([]Record, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, Record{Amount: "0.10", Type: "expense", Date: "2024-05-01"})
	}
	records = append(records, Record{Amount: "1.00", Type: "income", Date: "2024-05-02"})

	view, err := quietAggregator().Compute(records, "2024-05", ModeDay)
	require.NoError(t, err)

	assert.Equal(t, "1", view.TotalExpense.String())
	assert.True(t, view.TotalBalance.IsZero())
}

func TestCompute_ParsePolicy(t *testing.T) {
	var logs bytes.Buffer
	var hooked []*apperrors.ParseError

	agg := New(
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithParseErrorHook(func(_ int, err *apperrors.ParseError) {
			hooked = append(hooked, err)
		}),
	)

	records := []Record{
		{Amount: "abc", Type: "expense", Date: "2024-01-05"},   // zeroed, still bucketed
		{Amount: "25", Type: "expense", Date: "not-a-date"},    // excluded
		{Amount: "-3", Type: "expense", Date: "2024-01-06"},    // zeroed
		{Amount: "", Type: "income", Date: "2024-01-07"},       // zeroed
		{Amount: "12.50", Type: "expense", Date: "2024-01-07"}, // fine
		{Amount: "8", Type: "expense", Date: ""},               // excluded
	}

	view, err := agg.Compute(records, "2024-01", ModeDay)
	require.NoError(t, err)

	assert.True(t, dec("12.50").Equal(view.TotalExpense))
	assert.True(t, view.TotalIncome.IsZero())
	assert.Equal(t, []string{"2024-01"}, view.Months)
	assert.Equal(t, 2, view.Excluded)
	assert.Equal(t, 3, view.Zeroed)

	keys := make([]string, 0, len(view.ChartSeries))
	for _, p := range view.ChartSeries {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"2024-01-05", "2024-01-06", "2024-01-07"}, keys)
	assert.True(t, view.ChartSeries[0].Amount.IsZero())

	require.Len(t, hooked, 5)
	assert.Equal(t, "amount", hooked[0].Field)
	assert.Equal(t, "date", hooked[1].Field)
	assert.Contains(t, logs.String(), "skipping malformed transaction field")
}

func TestCompute_OutOfRangeExponentIsZeroed(t *testing.T) {
	var hooked []*apperrors.ParseError
	agg := quietAggregator(WithParseErrorHook(func(_ int, err *apperrors.ParseError) {
		hooked = append(hooked, err)
	}))

	records := []Record{
		{Amount: "1e10000000", Type: "expense", Date: "2024-01-05"},
		{Amount: "1e-10000000", Type: "income", Date: "2024-01-05"},
		{Amount: "0.01", Type: "expense", Date: "2024-01-05"},
		{Amount: "2.5e3", Type: "income", Date: "2024-01-06"},
	}

	start := time.Now()
	view, err := agg.Compute(records, "2024-01", ModeDay)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, dec("0.01").Equal(view.TotalExpense))
	assert.True(t, dec("2500").Equal(view.TotalIncome))
	assert.Equal(t, 2, view.Zeroed)
	require.Len(t, hooked, 2)
	assert.Equal(t, "amount", hooked[0].Field)
	assert.ErrorIs(t, hooked[0].Err, errAmountRange)
}

func TestCompute_AcceptsRFC3339Dates(t *testing.T) {
	records := []Record{
		{Amount: "3", Type: "expense", Date: "2024-02-29T23:30:00-05:00"},
		{Amount: "4", Type: "expense", Date: "2024-03-01T00:15:00Z"},
	}

	view, err := quietAggregator().Compute(records, "2024-02", ModeDay)
	require.NoError(t, err)

	require.Len(t, view.ChartSeries, 1)
	assert.Equal(t, "2024-02-29", view.ChartSeries[0].Key)
	assert.Equal(t, []string{"2024-03", "2024-02"}, view.Months)
}

func TestCompute_UnknownTypeIgnored(t *testing.T) {
	records := []Record{
		{Amount: "3", Type: "transfer", Date: "2024-02-01"},
	}

	view, err := quietAggregator().Compute(records, "2024-02", ModeDay)
	require.NoError(t, err)

	assert.True(t, view.TotalIncome.IsZero())
	assert.True(t, view.TotalExpense.IsZero())
	assert.Empty(t, view.ChartSeries)
	assert.Equal(t, []string{"2024-02"}, view.Months)
	assert.Zero(t, view.Excluded)
	assert.Zero(t, view.Zeroed)
}

func TestCompute_DefaultsToCurrentMonth(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC) }

	view, err := quietAggregator(WithClock(clock)).Compute(nil, "", ModeDay)
	require.NoError(t, err)
	assert.Equal(t, "2024-07", view.SelectedMonth)
}

func TestCompute_RejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name  string
		month string
		mode  Mode
		field string
	}{
		{"unknown mode", "2024-01", Mode("week"), "mode"},
		{"malformed month", "2024-13", ModeDay, "month"},
		{"day instead of month", "2024-01-01", ModeDay, "month"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := quietAggregator().Compute(nil, tc.month, tc.mode)
			require.Error(t, err)

			verr, ok := apperrors.AsValidation(err)
			require.True(t, ok)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestCompute_BalanceAndSeriesProperties(t *testing.T) {
	faker := gofakeit.New(42)
	types := []string{"income", "expense"}

	for run := 0; run < 25; run++ {
		records := make([]Record, 0, 40)
		for i := 0; i < 40; i++ {
			day := faker.DateRange(
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
			)
			records = append(records, Record{
				Amount: fmt.Sprintf("%.2f", faker.Float64Range(0, 5000)),
				Type:   types[faker.IntRange(0, 1)],
				Date:   day.Format(models.DateLayout),
			})
		}

		view, err := quietAggregator().Compute(records, "2024-02", ModeDay)
		require.NoError(t, err)

		assert.True(t, view.TotalBalance.Equal(view.TotalIncome.Sub(view.TotalExpense)))

		seriesSum := decimal.Zero
		for _, p := range view.ChartSeries {
			seriesSum = seriesSum.Add(p.Amount)
		}
		assert.True(t, seriesSum.LessThanOrEqual(view.TotalExpense))

		for i := 1; i < len(view.Months); i++ {
			assert.Greater(t, view.Months[i-1], view.Months[i])
		}
	}
}

func TestFromTransactions(t *testing.T) {
	txs := []models.Transaction{
		{
			ID:       uuid.New(),
			OwnerID:  uuid.New(),
			Title:    "Rent",
			Category: models.CategoryBills,
			Amount:   dec("1200.50"),
			Type:     models.TransactionTypeExpense,
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	records := FromTransactions(txs)
	require.Len(t, records, 1)
	assert.Equal(t, Record{Amount: "1200.5", Type: "expense", Date: "2024-03-01"}, records[0])
}
