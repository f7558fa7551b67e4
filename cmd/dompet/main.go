package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dompet/internal/amqp"
	"dompet/internal/cache"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/core"
	apphttp "dompet/internal/http"
	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
	"dompet/internal/services"
	"dompet/internal/stats"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)

	logger.Info("Starting dompet",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"stats_freshness", cfg.StatsFreshness.String())

	backendResult := cli.OpenBackend(context.Background(), logger, cfg)
	st := backendResult.Store

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Dashboard aggregator with its own memo cache
	statsCache := cache.NewLRU[core.DashboardStats](cfg.StatsCacheSize)
	aggregator := stats.New(st,
		stats.WithCache(statsCache),
		stats.WithFreshness(cfg.StatsFreshness),
		stats.WithFallbackSize(cfg.StatsCacheSize),
		stats.WithLogger(logger),
		stats.WithMetrics(stats.NewMetrics(reg)),
	)

	var cacheManager *cache.Manager
	if cfg.CacheCleanupInterval > 0 {
		cacheLogger := logger.WithComponent(applog.ComponentCache)
		cacheManager = cache.NewManager(func(removed int) {
			if removed > 0 {
				cacheLogger.Debug("Cache cleanup completed", "entries_removed", removed)
			}
		})
		cacheManager.Register(statsCache)
		cacheManager.StartCleanup(cfg.CacheCleanupInterval, cfg.StatsFreshness)
	}

	txOpts := []services.TransactionOption{
		services.WithStats(aggregator),
		services.WithTransactionLogger(logger),
	}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The ledger mirror is optional; the API keeps working without it.
			logger.Warn("AMQP unavailable, ledger sync disabled", "error", err)
		} else {
			txOpts = append(txOpts, services.WithPublisher(amqpClient))
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		RequestsPerMinute: cfg.RateLimitRPM,
		Auth: auth.Config{
			Secret:    cfg.JWTSecret,
			DevUserID: cfg.DevUserID,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Registry:       reg,
		Logger:         logger,
	}, apphttp.Services{
		Transactions: services.NewTransactionService(st, txOpts...),
		Categories:   services.NewCategoryService(st),
		Goals:        services.NewGoalService(st),
		Budgets:      services.NewBudgetService(st),
		Reports:      services.NewReportService(st),
		Stats:        aggregator,
		Store:        st,
	})
	if cfg.DevUserID != "" {
		logger.Warn("Token verification disabled, all requests run as the dev user", "user_id", cfg.DevUserID)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if backendResult.Cleanup != nil {
			if err := backendResult.Cleanup(); err != nil {
				logger.Warn("Backend close error", "error", err)
			}
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
