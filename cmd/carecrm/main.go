package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carecrm/carecrm/internal/app"
	"github.com/carecrm/carecrm/internal/catalog"
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/dashboard"
	"github.com/carecrm/carecrm/internal/exchange"
	"github.com/carecrm/carecrm/internal/observability"
	"github.com/carecrm/carecrm/internal/orders"
	"github.com/carecrm/carecrm/internal/platform/cache"
	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/internal/settings"
	"github.com/carecrm/carecrm/internal/shared"
	"github.com/carecrm/carecrm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "carecrm")

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.AppTimezone)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var dashboardCache *cache.Versioned
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		dashboardCache = cache.NewVersioned(nil, "dashboard", cfg.DashboardCacheTTL)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		dashboardCache = cache.NewVersioned(redisClient, "dashboard", cfg.DashboardCacheTTL)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool, logger)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), auditLogger, metrics)
	customerService := customers.NewService(customers.NewRepository(dbpool), auditLogger, dashboardCache)
	orderService := orders.NewService(orders.NewRepository(dbpool), orders.ServiceConfig{
		AfterSalesDelayDays: cfg.AfterSalesDelayDays,
		Location:            cfg.Location(),
	}, auditLogger, metrics, dashboardCache)
	settingsService := settings.NewService(settings.NewRepository(dbpool), auditLogger)
	dashboardService := dashboard.NewService(customerService, orderService, dashboardCache)
	exchangeService := exchange.NewService(orderService, customerService, catalogService, settingsService, cfg.Location())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		CustomerHandler:  customers.NewHandler(logger, customerService),
		OrderHandler:     orders.NewHandler(logger, orderService),
		SettingsHandler:  settings.NewHandler(logger, settingsService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		ExchangeHandler:  exchange.NewHandler(logger, exchangeService, cfg.ImportMaxBytes),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", cfg.AppTimezone))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
