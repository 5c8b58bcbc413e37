package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SscSPs/finance_ledger/internal/adapters/gateway"
	"github.com/SscSPs/finance_ledger/internal/adapters/reportsink"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/core/services"
	"github.com/SscSPs/finance_ledger/internal/handlers"
	"github.com/SscSPs/finance_ledger/internal/jobs"
	"github.com/SscSPs/finance_ledger/internal/jobs/inmemory"
	"github.com/SscSPs/finance_ledger/internal/middleware"
	"github.com/SscSPs/finance_ledger/internal/platform/config"
	"github.com/SscSPs/finance_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/SscSPs/finance_ledger/internal/scheduler"
	"github.com/SscSPs/finance_ledger/internal/utils"
	"github.com/SscSPs/finance_ledger/pkg/database"
	"github.com/gin-gonic/gin"
)

// @title Finance Ledger API
// @version 1.0
// @description Accounts, transactions, transfers, card payments, recurring debits and spending analytics.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, cleanup, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	sink, closeSink, err := setupReportSink(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report sink", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeSink()

	queue := inmemory.NewQueue(inmemory.Config{
		Workers:    cfg.ReconcileWorkers,
		BufferSize: cfg.ReconcileQueueSize,
		MaxRetries: cfg.ReconcileMaxRetries,
		Backoff:    time.Second,
	}, logger)

	container := services.NewServiceContainer(cfg, repos, services.Collaborators{
		Gateway:    setupGateway(cfg, logger),
		Dispatcher: queue,
		ReportSink: sink,
	})

	// Workers outlive the signal context so Stop can drain them after HTTP shutdown.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	var consumer jobs.Consumer = queue
	if err := consumer.Start(workerCtx, jobs.ReconcileHandler(container.Reconciliation)); err != nil {
		logger.Error("Failed to start reconciliation workers", slog.String("error", err.Error()))
		os.Exit(1)
	}
	resumed, err := jobs.Resume(ctx, container.Reconciliation, queue)
	if err != nil {
		logger.Error("Failed to resume unsettled payments", slog.Int("resumed", resumed), slog.String("error", err.Error()))
	} else if resumed > 0 {
		logger.Info("Resumed unsettled payments", slog.Int("resumed", resumed))
	}

	go scheduler.NewRecurringTimer(container.Recurring, cfg.RecurringInterval, nil, logger).Run(ctx)

	tracker := utils.InitializePosthogClient(cfg.PosthogAPIKey, logger)
	defer tracker.Close()

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	err = r.SetTrustedProxies(nil)
	if err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container, rateLimiter, tracker)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}
	if err := consumer.Stop(shutdownCtx); err != nil {
		logger.Error("Reconciliation workers did not drain", slog.String("error", err.Error()))
	}
	cancelWorkers()
	logger.Info("Shutdown complete")
}

func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewRepositoryProvider(), func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		database.ClosePgxPool(dbPool, logger)
		return portsrepo.RepositoryProvider{}, nil, err
	}
	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool, logger) }, nil
}

func setupGateway(cfg *config.Config, logger *slog.Logger) portssvc.PaymentGateway {
	if cfg.StripeSecretKey == "" {
		logger.Warn("Payments use the sandbox gateway")
		return gateway.NewSandboxGateway()
	}
	return gateway.NewStripeGateway(cfg.StripeSecretKey, nil)
}

func setupReportSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portssvc.ReportSink, func(), error) {
	if cfg.ReportBucket == "" {
		return reportsink.NewLogSink(logger), func() {}, nil
	}
	sink, err := reportsink.NewGCSSink(ctx, cfg.ReportBucket, logger)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() {
		if err := sink.Close(); err != nil {
			logger.Error("Failed to close report sink", slog.String("error", err.Error()))
		}
	}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
