package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/notifications"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/sales/invoices"
	"github.com/meridian-erp/meridian/internal/sales/orders"
	"github.com/meridian-erp/meridian/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGConnLifetime})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditService := audit.NewService(audit.NewRepository(pool), nil, logger)
	notificationService := notifications.NewService(notifications.NewRepository(pool), nil, logger)

	numbers := numbering.NewService(numbering.NewPGRepository(pool))
	invoiceService := invoices.NewService(invoices.NewRepository(pool), orders.NewRepository(pool), numbers)

	purgeTask, err := jobs.NewInvoicePurgeTask(jobs.InvoicePurgePayload{
		RetentionHours: int(cfg.InvoiceRetention.Hours()),
	})
	if err != nil {
		logger.Error("build invoice purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskActivityRecord, Handler: jobs.HandleActivityRecord(auditService)},
			{Type: jobs.TaskNotificationFanout, Handler: jobs.HandleNotificationFanout(notificationService)},
			{Type: jobs.TaskInvoicePurge, Handler: jobs.HandleInvoicePurge(invoiceService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
