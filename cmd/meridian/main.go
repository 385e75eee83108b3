package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/auth"
	"github.com/meridian-erp/meridian/internal/brand"
	"github.com/meridian-erp/meridian/internal/notifications"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/cache"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/platform/storage"
	"github.com/meridian-erp/meridian/internal/purchasing"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/reports"
	"github.com/meridian-erp/meridian/internal/sales/invoices"
	"github.com/meridian-erp/meridian/internal/sales/orders"
	"github.com/meridian-erp/meridian/internal/sales/quotations"
	"github.com/meridian-erp/meridian/internal/users"
	"github.com/meridian-erp/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store, err := storage.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	rbacService := rbac.NewService(rbac.NewRepository(pool), redisClient)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	auditService := audit.NewService(audit.NewRepository(pool), jobsClient, logger)
	notificationService := notifications.NewService(notifications.NewRepository(pool), jobsClient, logger)

	tokens := auth.NewTokenManager(cfg.AuthTokenSecret, cfg.AuthTokenTTL, cfg.IsProduction())
	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	authHandler := &auth.Handler{
		Service:  authService,
		Tokens:   tokens,
		Audit:    auditService,
		Validate: validator.New(),
	}

	brandRepo := brand.NewRepository(pool)
	scopeResolver := brand.NewScopeResolver(brandRepo)
	brandService := brand.NewService(brandRepo, scopeResolver)

	usersService := users.NewService(users.NewPGRepository(pool), rbacService, brandService)
	activeResolver := brand.NewActiveResolver(brandRepo, scopeResolver, usersService, logger)
	brandHandler := brand.NewHandler(logger, brandService, activeResolver, store, auditService, cfg.BrandCookieTTL, rbacMiddleware)

	numbers := numbering.NewService(numbering.NewPGRepository(pool))

	quotationRepo := quotations.NewRepository(pool)
	quotationService := quotations.NewService(quotationRepo, numbers)
	quotationHandler := quotations.NewHandler(quotationService, auditService, rbacMiddleware)

	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, quotationRepo, numbers, notificationService)
	orderHandler := orders.NewHandler(orderService, auditService, rbacMiddleware)

	invoiceService := invoices.NewService(invoices.NewRepository(pool), orderRepo, numbers)
	invoiceHandler := invoices.NewHandler(invoiceService, auditService, rbacMiddleware)

	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), numbers)
	purchasingHandler := purchasing.NewHandler(purchasingService, auditService, rbacMiddleware)

	reportsService := reports.NewService(reports.NewPGRepository(pool), scopeResolver)
	reportsHandler := reports.NewHandler(reportsService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Tokens: tokens,
		Scope:  scopeResolver,
		Active: activeResolver,

		AuthHandler:          authHandler,
		BrandHandler:         brandHandler,
		RolesHandler:         rbac.NewHandler(logger, rbacService, rbacMiddleware),
		UsersHandler:         users.NewHandler(usersService, auditService, rbacMiddleware),
		QuotationsHandler:    quotationHandler,
		OrdersHandler:        orderHandler,
		InvoicesHandler:      invoiceHandler,
		PurchasingHandler:    purchasingHandler,
		ReportsHandler:       reportsHandler,
		NotificationsHandler: notifications.NewHandler(logger, notificationService),
		ActivityHandler:      audit.NewHandler(auditService, rbacMiddleware),
		JobHandler:           jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
