package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/portfolio-service/portfolio_service/internal/api/handlers"
	"github.com/portfolio-service/portfolio_service/internal/api/routes"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/backtest"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/ledger"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/performance"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/rebalance"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/config"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/database"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/pricing"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/health"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	log.Infow("Starting portfolio service", "version", version.Get().Version, "environment", cfg.Environment)

	// Initialize database
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Repositories
	portfolioRepo := repositories.NewPortfolioRepository(db, log)
	instrumentRepo := repositories.NewInstrumentRepository(db, log)
	transactionRepo := repositories.NewTransactionRepository(db, log)
	targetRepo := repositories.NewTargetRepository(db, log)

	// Price oracle with Redis read-through cache
	oracle := pricing.NewCachedPriceService(
		pricing.NewMockPriceService(),
		redisClient,
		time.Duration(cfg.Pricing.CacheTTLSeconds)*time.Second,
		log,
	)

	// Domain services
	ledgerSvc := ledger.NewService(portfolioRepo, transactionRepo, instrumentRepo, log)
	valuationSvc := valuation.NewService(portfolioRepo, transactionRepo, instrumentRepo, oracle, log)
	performanceSvc := performance.NewService(portfolioRepo, valuationSvc, log)
	rebalanceSvc := rebalance.NewService(portfolioRepo, targetRepo, instrumentRepo, valuationSvc, log)
	backtestSvc := backtest.NewService(backtest.NewMemoryStore(), oracle, cfg.Backtest.MaxRangeDays, log)

	// Health checks
	checker := health.NewHealthChecker(10 * time.Second)
	checker.Register(health.NewDatabaseChecker(db.DB, 5*time.Second))
	checker.Register(health.NewRedisChecker(redisClient, 3*time.Second))

	router := routes.SetupRoutes(cfg, log, routes.Handlers{
		Health:      handlers.NewHealthHandler(checker),
		Portfolio:   handlers.NewPortfolioHandler(portfolioRepo, log),
		Transaction: handlers.NewTransactionHandler(ledgerSvc, log),
		Analytics:   handlers.NewAnalyticsHandler(valuationSvc, performanceSvc, log),
		Rebalance:   handlers.NewRebalanceHandler(rebalanceSvc, log),
		Backtest:    handlers.NewBacktestHandler(backtestSvc, log),
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
