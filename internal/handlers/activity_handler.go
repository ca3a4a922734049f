package handlers

import (
	"net/http"

	"money-tracker/internal/dto"
	"money-tracker/internal/errors"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

const defaultActivityLimit = 20

// ActivityHandler exposes the caller's own audit trail
type ActivityHandler struct {
	activityService services.ActivityServiceInterface
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService services.ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// ListActivity pages through the authenticated user's audit entries, newest first
// @Summary List my activity
// @Description Sign-ins, sign-outs and transaction changes recorded for the authenticated user
// @Tags Activity
// @Security BearerAuth
// @Produce json
// @Param action query string false "Only entries with this action"
// @Param offset query int false "Entries to skip" default(0)
// @Param limit query int false "Entries per page (max 100)" default(20)
// @Success 200 {object} dto.ActivityResponse "Activity page"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid action or pagination parameters"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /me/activity [get]
func (h *ActivityHandler) ListActivity(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	q := dto.ActivityQuery{
		Action: c.QueryParam("action"),
		Offset: getIntParam(c, "offset", 0),
		Limit:  getIntParam(c, "limit", defaultActivityLimit),
	}
	if fields := validateRequest(c, q); fields != nil {
		return SendValidationError(c, fields)
	}
	if q.Limit == 0 {
		q.Limit = defaultActivityLimit
	}
	if q.Action != "" {
		if err := services.ValidateActivityType(q.Action); err != nil {
			return SendValidationError(c, map[string]string{"action": err.Error()})
		}
	}

	logs, total, err := h.activityService.List(c.Request().Context(), userID, q.Action, q.Offset, q.Limit)
	if err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToActivityResponse(logs, total, q.Offset, q.Limit))
}
