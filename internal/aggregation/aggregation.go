// Package aggregation turns a list of transaction records into the month list,
// the selected month's totals and an expense chart series.
package aggregation

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Mode selects the bucket granularity of the chart series
type Mode string

const (
	ModeDay   Mode = "day"
	ModeMonth Mode = "month"
)

// IsValid reports whether m is a known mode
func (m Mode) IsValid() bool {
	return m == ModeDay || m == ModeMonth
}

// MonthScope controls which records feed the month-mode series.
// Day mode always uses the selected month only.
type MonthScope string

const (
	// MonthScopeAllHistory charts every month on record
	MonthScopeAllHistory MonthScope = "all"
	// MonthScopeSelectedMonth charts only the selected month
	MonthScopeSelectedMonth MonthScope = "selected"
)

// IsValid reports whether s is a known scope
func (s MonthScope) IsValid() bool {
	return s == MonthScopeAllHistory || s == MonthScopeSelectedMonth
}

var (
	errEmptyValue     = errors.New("empty value")
	errNegativeAmount = errors.New("amount is negative")
	errDateLayout     = errors.New("expected YYYY-MM-DD or RFC 3339")
	errAmountRange    = errors.New("amount exponent out of range")
)

// Amounts whose decimal exponent falls outside this range are rejected before
// any arithmetic, so a short input like "1e10000000" never gets expanded.
const (
	minAmountExponent = -18
	maxAmountExponent = 18
)

// Record is a transaction as it arrives from a store or a client, before typing
type Record struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
	Date   string `json:"date"`
}

// FromTransactions converts typed transactions into aggregation records
func FromTransactions(transactions []models.Transaction) []Record {
	records := make([]Record, 0, len(transactions))
	for i := range transactions {
		tx := &transactions[i]
		records = append(records, Record{
			Amount: tx.Amount.String(),
			Type:   string(tx.Type),
			Date:   tx.DateKey(),
		})
	}
	return records
}

// Point is one bucket of the chart series
type Point struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// View is the derived summary for one selected month
type View struct {
	Months        []string        `json:"months"`
	SelectedMonth string          `json:"selected_month"`
	Mode          Mode            `json:"mode"`
	MonthScope    MonthScope      `json:"month_scope"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpense  decimal.Decimal `json:"total_expense"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	ChartSeries   []Point         `json:"chart_series"`
	// Excluded counts records left out entirely because their date did not parse
	Excluded int `json:"excluded"`
	// Zeroed counts records kept with an amount of zero because it did not parse
	Zeroed int `json:"zeroed"`
}

// ParseErrorHook is notified for every record field the aggregator could not interpret
type ParseErrorHook func(index int, err *apperrors.ParseError)

// Aggregator computes views. The zero value is not usable; call New.
type Aggregator struct {
	monthScope   MonthScope
	now          func() time.Time
	logger       *slog.Logger
	onParseError ParseErrorHook
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithMonthScope sets the month-mode scope
func WithMonthScope(scope MonthScope) Option {
	return func(a *Aggregator) {
		if scope.IsValid() {
			a.monthScope = scope
		}
	}
}

// WithClock overrides the clock used to default the selected month
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithLogger sets the logger parse problems are reported to
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithParseErrorHook registers a callback for parse problems, e.g. a metrics counter
func WithParseErrorHook(hook ParseErrorHook) Option {
	return func(a *Aggregator) {
		a.onParseError = hook
	}
}

// New creates an Aggregator. Month mode spans all history unless configured otherwise.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		monthScope: MonthScopeAllHistory,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute aggregates records with default options
func Compute(records []Record, selectedMonth string, mode Mode) (*View, error) {
	return New().Compute(records, selectedMonth, mode)
}

// Compute builds the view for selectedMonth ("YYYY-MM", empty means the current month).
// A record with an unparseable amount counts as zero. A record with an unparseable
// date is left out of months, totals and buckets. Neither aborts the computation.
func (a *Aggregator) Compute(records []Record, selectedMonth string, mode Mode) (*View, error) {
	if !mode.IsValid() {
		return nil, apperrors.NewFieldValidation("mode", "must be one of: day month")
	}

	selectedMonth = strings.TrimSpace(selectedMonth)
	if selectedMonth == "" {
		selectedMonth = a.now().Format(models.MonthLayout)
	} else if _, err := time.Parse(models.MonthLayout, selectedMonth); err != nil {
		return nil, apperrors.NewFieldValidation("month", "must be a YYYY-MM month")
	}

	monthSet := make(map[string]struct{})
	buckets := make(map[string]decimal.Decimal)
	income := decimal.Zero
	expense := decimal.Zero
	excluded, zeroed := 0, 0

	for i, record := range records {
		day, dateErr := parseDate(record.Date)
		amount, amountErr := parseAmount(record.Amount)

		if dateErr != nil {
			a.reportParseError(i, dateErr)
			excluded++
			continue
		}
		if amountErr != nil {
			a.reportParseError(i, amountErr)
			zeroed++
		}

		month := day.Format(models.MonthLayout)
		monthSet[month] = struct{}{}
		inSelectedMonth := month == selectedMonth

		txType := models.TransactionType(strings.TrimSpace(record.Type))
		if inSelectedMonth {
			switch txType {
			case models.TransactionTypeIncome:
				income = income.Add(amount)
			case models.TransactionTypeExpense:
				expense = expense.Add(amount)
			}
		}

		if txType != models.TransactionTypeExpense {
			continue
		}

		switch mode {
		case ModeDay:
			if inSelectedMonth {
				key := day.Format(models.DateLayout)
				buckets[key] = buckets[key].Add(amount)
			}
		case ModeMonth:
			if a.monthScope == MonthScopeAllHistory || inSelectedMonth {
				buckets[month] = buckets[month].Add(amount)
			}
		}
	}

	return &View{
		Months:        sortedMonthsDesc(monthSet),
		SelectedMonth: selectedMonth,
		Mode:          mode,
		MonthScope:    a.monthScope,
		TotalIncome:   income,
		TotalExpense:  expense,
		TotalBalance:  income.Sub(expense),
		ChartSeries:   sortedSeries(buckets),
		Excluded:      excluded,
		Zeroed:        zeroed,
	}, nil
}

func (a *Aggregator) reportParseError(index int, err *apperrors.ParseError) {
	if a.logger != nil {
		a.logger.Warn("skipping malformed transaction field",
			"record_index", index,
			"field", err.Field,
			"value", err.Value,
			"error", err.Err)
	}
	if a.onParseError != nil {
		a.onParseError(index, err)
	}
}

func parseAmount(raw string) (decimal.Decimal, *apperrors.ParseError) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, &apperrors.ParseError{Field: "amount", Value: raw, Err: errEmptyValue}
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &apperrors.ParseError{Field: "amount", Value: raw, Err: err}
	}

	if exp := amount.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return decimal.Zero, &apperrors.ParseError{Field: "amount", Value: raw, Err: errAmountRange}
	}

	if amount.IsNegative() {
		return decimal.Zero, &apperrors.ParseError{Field: "amount", Value: raw, Err: errNegativeAmount}
	}

	return amount, nil
}

func parseDate(raw string) (time.Time, *apperrors.ParseError) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &apperrors.ParseError{Field: "date", Value: raw, Err: errEmptyValue}
	}

	if day, err := time.Parse(models.DateLayout, value); err == nil {
		return day, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return models.TruncateToDate(ts), nil
	}

	return time.Time{}, &apperrors.ParseError{Field: "date", Value: raw, Err: errDateLayout}
}

func sortedMonthsDesc(set map[string]struct{}) []string {
	months := make([]string, 0, len(set))
	for month := range set {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

func sortedSeries(buckets map[string]decimal.Decimal) []Point {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make([]Point, 0, len(keys))
	for _, key := range keys {
		series = append(series, Point{Key: key, Amount: buckets[key]})
	}
	return series
}
