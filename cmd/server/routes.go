package main

import (
	"net/http"

	"money-tracker/internal/handlers"

	"github.com/labstack/echo/v4"
)

type routeHandlers struct {
	health      *handlers.HealthCheckHandler
	auth        *handlers.AuthHandler
	transaction *handlers.TransactionHandler
	summary     *handlers.SummaryHandler
	activity    *handlers.ActivityHandler
	dev         *handlers.DevHandler
	metrics     http.Handler
}

func registerRoutes(e *echo.Echo, h routeHandlers, rateLimit, requireAuth echo.MiddlewareFunc) {
	e.GET("/health", h.health.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(h.metrics))

	api := e.Group("/api/v1")

	auth := api.Group("/auth", rateLimit)
	auth.POST("/signup", h.auth.SignUp)
	auth.POST("/signin", h.auth.SignIn)
	auth.POST("/google", h.auth.Google)
	auth.POST("/refresh", h.auth.RefreshToken)
	auth.POST("/signout", h.auth.SignOut)

	protected := api.Group("", requireAuth)
	protected.GET("/me", h.auth.Me)
	protected.GET("/me/activity", h.activity.ListActivity)

	protected.GET("/categories", h.transaction.ListCategories)
	protected.GET("/transactions", h.transaction.ListTransactions)
	protected.POST("/transactions", h.transaction.CreateTransaction)
	protected.GET("/transactions/stream", h.transaction.StreamTransactions)
	protected.GET("/transactions/:id", h.transaction.GetTransaction)
	protected.PUT("/transactions/:id", h.transaction.UpdateTransaction)
	protected.DELETE("/transactions/:id", h.transaction.DeleteTransaction)

	protected.GET("/summary", h.summary.GetSummary)
	protected.POST("/aggregations", h.summary.ComputeAggregation)

	if h.dev != nil {
		protected.POST("/dev/demo-data", h.dev.GenerateDemoData)
		protected.DELETE("/dev/demo-data", h.dev.ClearDemoData)
	}
}
