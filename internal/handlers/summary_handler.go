package handlers

import (
	"net/http"

	"money-tracker/internal/aggregation"
	"money-tracker/internal/dto"
	"money-tracker/internal/errors"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// SummaryHandler serves month summaries and chart series
type SummaryHandler struct {
	summaryService services.SummaryServiceInterface
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaryService services.SummaryServiceInterface) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

func parseMode(raw string) aggregation.Mode {
	if raw == "" {
		return aggregation.ModeDay
	}
	return aggregation.Mode(raw)
}

// GetSummary aggregates the caller's stored transactions
// @Summary Month summary
// @Description Totals for the selected month, the months on record and the expense chart series
// @Tags Summary
// @Security BearerAuth
// @Produce json
// @Param month query string false "Selected month (YYYY-MM), defaults to the current month"
// @Param mode query string false "Chart granularity (day, month), defaults to day"
// @Param monthScope query string false "Month-mode scope (all, selected)"
// @Success 200 {object} dto.SummaryResponse "Summary"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid month, mode or scope"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the query"
// @Router /summary [get]
func (h *SummaryHandler) GetSummary(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	q := dto.SummaryQuery{
		Month:      c.QueryParam("month"),
		Mode:       c.QueryParam("mode"),
		MonthScope: c.QueryParam("monthScope"),
	}

	view, err := h.summaryService.Summary(c.Request().Context(), userID, q.Month, parseMode(q.Mode), aggregation.MonthScope(q.MonthScope))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToSummaryResponse(view))
}

// ComputeAggregation aggregates records supplied in the request body
// @Summary Aggregate records
// @Description Compute a summary over raw records without reading the store. Malformed records are counted in skipped.
// @Tags Summary
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AggregationRequest true "Records and options"
// @Success 200 {object} dto.SummaryResponse "Summary"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid month, mode or scope"
// @Router /aggregations [post]
func (h *SummaryHandler) ComputeAggregation(c echo.Context) error {
	var req dto.AggregationRequest

	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := validateRequest(c, req); fields != nil {
		return SendValidationError(c, fields)
	}

	view, err := h.summaryService.Compute(req.Records, req.SelectedMonth, parseMode(req.Mode), aggregation.MonthScope(req.MonthScope))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToSummaryResponse(view))
}
