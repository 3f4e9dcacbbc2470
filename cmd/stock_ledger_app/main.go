package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/cache"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/handlers"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/StockBookHQ/stock_ledger_app/internal/platform/config"
	"github.com/StockBookHQ/stock_ledger_app/internal/repositories/database/pgsql"
	"github.com/StockBookHQ/stock_ledger_app/pkg/database"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Stock Ledger API
// @version 1.0
// @description Daily stock ledger carry-forward and aggregation service.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	normalizer := domain.NewNormalizer(cfg.LedgerUTCOffset, cfg.LedgerOffsetSeconds)

	// Optional Redis: summary cache plus scheduler leader lock. Without it the
	// cache is a no-op and every replica runs the daily batch on its own.
	var summaryCache cache.Cache = cache.Noop{}
	var locker *redislock.Client
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, falling back to no-op cache", slog.String("error", err.Error()))
		} else {
			summaryCache = redisCache
			locker = redislock.New(redisCache.Client())
			defer redisCache.Close()
		}
	}

	repos := pgsql.NewRepositoryProvider(dbPool, normalizer)
	serviceContainer := services.NewServiceContainer(repos, normalizer, summaryCache, cfg.SummaryCacheTTL)

	if cfg.SchedulerEnabled {
		schedulerOpts := []services.SchedulerOption{
			services.WithSchedulerConcurrency(cfg.SchedulerConcurrency),
		}
		if locker != nil {
			schedulerOpts = append(schedulerOpts, services.WithSchedulerLock(locker, 10*time.Minute))
		}
		scheduler := services.NewScheduler(serviceContainer.CarryForward, repos.CompanyRepo, normalizer, logger, schedulerOpts...)
		go scheduler.Run(ctx)
		logger.Info("Carry-forward scheduler started")
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, normalizer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("Server stopped")
}

// runMigrations applies all pending up migrations over a short-lived
// database/sql connection compatible with the main pgx pool.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
