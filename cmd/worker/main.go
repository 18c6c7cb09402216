package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/carecrm/carecrm/internal/app"
	"github.com/carecrm/carecrm/internal/observability"
	"github.com/carecrm/carecrm/internal/orders"
	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")

	pool, err := db.New(ctx, cfg.PGDSN, cfg.AppTimezone)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	orderService := orders.NewService(orders.NewRepository(pool), orders.ServiceConfig{
		AfterSalesDelayDays: cfg.AfterSalesDelayDays,
		Location:            cfg.Location(),
	}, nil, metrics, nil)
	digestJob := jobs.NewAfterSalesDigestJob(orderService, logger, metrics)

	digestTask, err := jobs.NewAfterSalesDigestTask(jobs.AfterSalesDigestPayload{RequestedBy: "cron"})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAfterSalesDigest, Handler: digestJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AfterSalesDigestCron, Task: digestTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("digest_cron", cfg.AfterSalesDigestCron))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
