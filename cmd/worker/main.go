package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/app"
	jobmetrics "github.com/nou-pos/nou/internal/jobs"
	"github.com/nou-pos/nou/internal/platform/db"
	"github.com/nou-pos/nou/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:        cfg.PGMaxConns,
		TimeZone:        cfg.AppTimezone,
		ApplicationName: "nou-worker",
	})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	activityService := activity.NewService(activity.NewRepository(pool))
	purgeJob := jobs.NewActivityPurgeJob(activityService, cfg.ActivityRetention, logger, jobmetrics.NewMetrics(nil))

	purgeTask, err := jobs.NewActivityPurgeTask(cfg.ActivityRetention)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Redis().Queue(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskActivityPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
