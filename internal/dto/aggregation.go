package dto

import (
	"money-tracker/internal/aggregation"
)

// AggregationRequest asks for a summary over client-supplied raw records
type AggregationRequest struct {
	Records       []aggregation.Record `json:"records"`
	SelectedMonth string               `json:"selectedMonth" validate:"omitempty,year_month"`
	Mode          string               `json:"mode" validate:"omitempty,oneof=day month"`
	MonthScope    string               `json:"monthScope" validate:"omitempty,oneof=all selected"`
}

// SummaryQuery selects the summary over the caller's stored transactions
type SummaryQuery struct {
	Month      string `query:"month"`
	Mode       string `query:"mode"`
	MonthScope string `query:"monthScope"`
}

// ChartPoint is one bucket of the expense series
type ChartPoint struct {
	Key    string `json:"key"`
	Amount string `json:"amount"`
}

// SummaryResponse is the derived view for one month
type SummaryResponse struct {
	Months        []string     `json:"months"`
	SelectedMonth string       `json:"selectedMonth"`
	Mode          string       `json:"mode"`
	MonthScope    string       `json:"monthScope"`
	TotalIncome   string       `json:"totalIncome"`
	TotalExpense  string       `json:"totalExpense"`
	TotalBalance  string       `json:"totalBalance"`
	ChartSeries   []ChartPoint `json:"chartSeries"`
	Excluded      int          `json:"excluded"`
	Zeroed        int          `json:"zeroed"`
}

// ToSummaryResponse formats money with two decimals
func ToSummaryResponse(view *aggregation.View) SummaryResponse {
	series := make([]ChartPoint, 0, len(view.ChartSeries))
	for _, p := range view.ChartSeries {
		series = append(series, ChartPoint{Key: p.Key, Amount: p.Amount.StringFixed(2)})
	}
	months := view.Months
	if months == nil {
		months = []string{}
	}
	return SummaryResponse{
		Months:        months,
		SelectedMonth: view.SelectedMonth,
		Mode:          string(view.Mode),
		MonthScope:    string(view.MonthScope),
		TotalIncome:   view.TotalIncome.StringFixed(2),
		TotalExpense:  view.TotalExpense.StringFixed(2),
		TotalBalance:  view.TotalBalance.StringFixed(2),
		ChartSeries:   series,
		Excluded:      view.Excluded,
		Zeroed:        view.Zeroed,
	}
}
