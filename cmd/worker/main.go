package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/portalkota/portalkota/internal/app"
	"github.com/portalkota/portalkota/internal/audit"
	"github.com/portalkota/portalkota/internal/auth"
	jobmetrics "github.com/portalkota/portalkota/internal/jobs"
	"github.com/portalkota/portalkota/internal/platform/db"
	"github.com/portalkota/portalkota/jobs"
)

const auditRetention = 365 * 24 * time.Hour

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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool))
	auditService := audit.NewService(audit.NewRepository(pool))
	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: jobs.HandleSessionsPurgeTask(authService, metrics, logger)},
			{Type: jobs.TaskAuditPrune, Handler: jobs.HandleAuditPruneTask(auditService, auditRetention, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "10 1 * * *", Task: jobs.NewSessionsPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "40 1 * * 0", Task: jobs.NewAuditPruneTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
