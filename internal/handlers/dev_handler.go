package handlers

import (
	"net/http"
	"time"

	"money-tracker/internal/errors"
	"money-tracker/internal/query"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

const (
	defaultDemoCount = 100
	maxDemoCount     = 1000
	defaultDemoDays  = 90
	maxDemoDays      = 365
)

// DevHandler serves development-only endpoints. Routes are registered
// only when the server runs in the development environment.
type DevHandler struct {
	transactionService services.TransactionServiceInterface
	generator          services.TransactionGeneratorInterface
	now                func() time.Time
}

// NewDevHandler creates a new development handler
func NewDevHandler(
	transactionService services.TransactionServiceInterface,
	generator services.TransactionGeneratorInterface,
) *DevHandler {
	return &DevHandler{
		transactionService: transactionService,
		generator:          generator,
		now:                time.Now,
	}
}

// DemoDataResponse reports how many transactions a dev endpoint touched
type DemoDataResponse struct {
	Created int    `json:"created,omitempty"`
	Deleted int    `json:"deleted,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// GenerateDemoData fills the caller's ledger with generated transactions
// @Summary Generate demo transactions
// @Description Development only. Creates count transactions spread over the last days days.
// @Tags Development
// @Security BearerAuth
// @Produce json
// @Param count query int false "Transactions to create (default 100, max 1000)"
// @Param days query int false "Days of history (default 90, max 365)"
// @Success 201 {object} SuccessResponse{data=DemoDataResponse} "Demo data created"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store write failed"
// @Router /dev/demo-data [post]
func (h *DevHandler) GenerateDemoData(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	count := clamp(getIntParam(c, "count", defaultDemoCount), 1, maxDemoCount)
	days := clamp(getIntParam(c, "days", defaultDemoDays), 1, maxDemoDays)

	end := h.now().UTC()
	start := end.AddDate(0, 0, -days)
	meta := requestMeta(c)

	created := 0
	for _, form := range h.generator.Generate(start, end, count) {
		if _, err := h.transactionService.Submit(c.Request().Context(), userID, nil, form, meta); err != nil {
			return SendDomainError(c, err)
		}
		created++
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data: DemoDataResponse{
			Created: created,
			From:    start.Format(time.DateOnly),
			To:      end.Format(time.DateOnly),
		},
		Message: "Demo data generated",
	})
}

// ClearDemoData deletes every transaction of the caller
// @Summary Delete all transactions
// @Description Development only. Removes every transaction owned by the caller.
// @Tags Development
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse{data=DemoDataResponse} "Transactions deleted"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store operation failed"
// @Router /dev/demo-data [delete]
func (h *DevHandler) ClearDemoData(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	spec, err := query.ForOwner(userID)
	if err != nil {
		return SendDomainError(c, err)
	}

	ctx := c.Request().Context()
	transactions, err := h.transactionService.List(ctx, spec)
	if err != nil {
		return SendDomainError(c, err)
	}

	meta := requestMeta(c)
	deleted := 0
	for _, tx := range transactions {
		if err := h.transactionService.Delete(ctx, userID, tx.ID, true, meta); err != nil {
			return SendDomainError(c, err)
		}
		deleted++
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data:    DemoDataResponse{Deleted: deleted},
		Message: "Transactions deleted",
	})
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
