package handlers

import (
	"context"
	"net/http"
	"time"

	"money-tracker/internal/errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SubscriptionCounter reports the number of live subscriptions
type SubscriptionCounter interface {
	Count() int
}

// HealthCheckHandler handles the health check endpoint
type HealthCheckHandler struct {
	db            *gorm.DB
	subscriptions SubscriptionCounter
}

// NewHealthCheckHandler creates a new health check handler. subscriptions may be nil.
func NewHealthCheckHandler(db *gorm.DB, subscriptions SubscriptionCounter) *HealthCheckHandler {
	return &HealthCheckHandler{db: db, subscriptions: subscriptions}
}

// HealthResponse is returned while the service is healthy
type HealthResponse struct {
	Status        string `json:"status"`
	Time          string `json:"time"`
	Subscriptions int    `json:"subscriptions"`
}

// HealthCheck adds the health check endpoint
// @Summary Health check
// @Description Check API and database connectivity status
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} errors.ErrorResponse "SYSTEM_003 - Service unavailable (database connection failed)"
// @Router /health [get]
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return h.unavailable(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return h.unavailable(c)
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.subscriptions != nil {
		response.Subscriptions = h.subscriptions.Count()
	}

	return c.JSON(http.StatusOK, response)
}

func (h *HealthCheckHandler) unavailable(c echo.Context) error {
	errorResponse := errors.NewErrorResponse(
		errors.SystemServiceUnavailable,
		getTraceIDFromContext(c),
		errors.WithDetails("Database connection failed"),
	)
	return c.JSON(http.StatusServiceUnavailable, errorResponse)
}

// Helper to get trace ID from context
func getTraceIDFromContext(c echo.Context) string {
	traceID := c.Response().Header().Get("X-Trace-ID")
	if traceID == "" {
		traceID = getTraceID(c)
	}
	if traceID == "" {
		traceID = "unknown"
	}
	return traceID
}
