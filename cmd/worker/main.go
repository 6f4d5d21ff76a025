package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Tishkos/arbatis-pos/internal/app"
	"github.com/Tishkos/arbatis-pos/internal/export"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
	"github.com/Tishkos/arbatis-pos/jobs"
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	exporter := export.NewExporter(logger, pool, export.Options{
		Dir:           cfg.ExportDir,
		ImageDir:      cfg.ImageDir,
		IncludeImages: cfg.ExportImages,
	})
	draftStore := drafts.NewStore(redisClient, cfg.DraftTTL)

	exportTask, err := jobs.NewExportTask(jobs.ExportPayload{IncludeImages: cfg.ExportImages})
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDataExport, Handler: jobs.NewExportHandler(logger, exporter)},
			{Type: jobs.TaskDraftSweep, Handler: jobs.NewDraftSweepHandler(logger, draftStore)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: exportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 * * * *", Task: jobs.NewDraftSweepTask()},
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
