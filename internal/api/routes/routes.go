package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portfolio-service/portfolio_service/internal/api/handlers"
	"github.com/portfolio-service/portfolio_service/internal/api/middleware"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/config"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/tracing"
)

// Handlers bundles the HTTP handlers wired by SetupRoutes.
type Handlers struct {
	Health      *handlers.HealthHandler
	Portfolio   *handlers.PortfolioHandler
	Transaction *handlers.TransactionHandler
	Analytics   *handlers.AnalyticsHandler
	Rebalance   *handlers.RebalanceHandler
	Backtest    *handlers.BacktestHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(cfg *config.Config, log *logger.Logger, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(cfg.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	// Health and operational endpoints
	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.GET("/live", h.Health.Live)
	router.GET("/version", h.Health.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		portfolios := v1.Group("/portfolios")
		{
			portfolios.POST("", h.Portfolio.Create)
			portfolios.GET("", h.Portfolio.List)
			portfolios.GET("/:id", h.Portfolio.Get)

			portfolios.POST("/:id/transactions", h.Transaction.Create)
			portfolios.GET("/:id/transactions", h.Transaction.List)

			portfolios.GET("/:id/valuation", h.Analytics.Valuation)
			portfolios.GET("/:id/performance", h.Analytics.Performance)

			portfolios.GET("/:id/rebalance", h.Rebalance.Analyze)
			portfolios.PUT("/:id/targets", h.Rebalance.SetTargets)
			portfolios.GET("/:id/targets", h.Rebalance.GetTargets)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:txId", h.Transaction.Get)
			transactions.POST("/:txId/void", h.Transaction.Void)
		}

		v1.POST("/compare/performance", h.Analytics.Compare)

		backtests := v1.Group("/backtests")
		{
			backtests.POST("/configs", h.Backtest.CreateConfig)
			backtests.GET("/configs", h.Backtest.ListConfigs)
			backtests.GET("/configs/:id", h.Backtest.GetConfig)

			backtests.POST("/run", h.Backtest.Run)
			backtests.GET("/runs", h.Backtest.ListRuns)
			backtests.GET("/runs/:id", h.Backtest.GetRun)
			backtests.GET("/runs/:id/result", h.Backtest.GetResult)
		}
	}

	return router
}
