package main

import (
	"log/slog"
	"time"

	"money-tracker/internal/aggregation"
	"money-tracker/internal/changefeed"
	"money-tracker/internal/config"
	"money-tracker/internal/database"
	"money-tracker/internal/handlers"
	"money-tracker/internal/middleware"
	"money-tracker/internal/repositories"
	"money-tracker/internal/services"
	"money-tracker/internal/subscription"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	echo        *echo.Echo
	hub         *subscription.Hub
	limiter     *middleware.RateLimiter
	maintenance *maintenance
}

func newApp(
	cfg *config.Config,
	db *database.DB,
	feed changefeed.Feed,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) *app {
	metrics := services.NewPrometheusMetrics(reg)
	auditLogger := services.NewAuditLogger(logger)

	userRepo := repositories.NewUserRepository(db.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db.DB)
	blacklistRepo := repositories.NewBlacklistedTokenRepository(db.DB)
	transactionRepo := repositories.NewTransactionRepository(db.DB)
	auditRepo := repositories.NewAuditLogRepository(db.DB)

	activityService := services.NewAuditService(auditRepo, logger)
	tokenService := services.NewTokenService(&cfg.JWT)
	authService := services.NewAuthService(
		userRepo,
		refreshTokenRepo,
		blacklistRepo,
		activityService,
		services.NewPasswordService(cfg.Security.BCryptCost, cfg.Security.PasswordMinLength),
		tokenService,
		services.NewGoogleIdentityVerifier(cfg.Google.ClientID),
		metrics,
		logger,
		cfg.Security.LockoutDuration,
	)

	hub := subscription.NewHub(transactionRepo,
		subscription.WithObserver(metrics),
		subscription.WithLogger(logger),
	)

	breakerConfig := services.DefaultCircuitBreakerConfig("change_feed")
	recordBreakerState := metrics.BreakerStateRecorder()
	breakerConfig.OnStateChange = func(name string, from, to services.BreakerState) {
		recordBreakerState(name, from, to)
		auditLogger.LogCircuitBreakerStateChange(name, from, to)
	}

	transactionService := services.NewTransactionService(
		transactionRepo,
		feed,
		services.NewCircuitBreaker(breakerConfig),
		hub,
		activityService,
		metrics,
		logger,
	)
	summaryService := services.NewSummaryService(
		transactionRepo,
		metrics,
		logger,
		aggregation.MonthScope(cfg.Aggregation.MonthScope),
	)

	limiter := middleware.NewRateLimiter(cfg.Security.RateLimitPerSecond, cfg.Security.RateLimitBurst)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = middleware.CustomHTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.Server.CORSAllowOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.TraceIDHeader},
		ExposeHeaders: []string{middleware.TraceIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	routes := routeHandlers{
		health:      handlers.NewHealthCheckHandler(db.DB, hub),
		auth:        handlers.NewAuthHandler(authService),
		transaction: handlers.NewTransactionHandler(transactionService, hub),
		summary:     handlers.NewSummaryHandler(summaryService),
		activity:    handlers.NewActivityHandler(activityService),
		metrics:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
	if cfg.IsDevelopment() {
		generator := services.NewTransactionGenerator(uint64(time.Now().UnixNano()))
		routes.dev = handlers.NewDevHandler(transactionService, generator)
	}
	registerRoutes(e, routes, limiter.Middleware(), middleware.RequireAuth(tokenService, authService))

	return &app{
		echo:    e,
		hub:     hub,
		limiter: limiter,
		maintenance: &maintenance{
			interval:      cfg.Maintenance.CleanupInterval,
			retention:     cfg.Maintenance.AuditRetention,
			refreshTokens: refreshTokenRepo,
			blacklist:     blacklistRepo,
			activity:      activityService,
			logger:        logger,
		},
	}
}
