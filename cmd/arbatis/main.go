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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tishkos/arbatis-pos/internal/activity"
	"github.com/Tishkos/arbatis-pos/internal/app"
	"github.com/Tishkos/arbatis-pos/internal/catalog/categories"
	"github.com/Tishkos/arbatis-pos/internal/catalog/motorcycles"
	"github.com/Tishkos/arbatis-pos/internal/catalog/products"
	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/export"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/platform/cache"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
	"github.com/Tishkos/arbatis-pos/internal/sales/invoices"
	"github.com/Tishkos/arbatis-pos/internal/shared"
	"github.com/Tishkos/arbatis-pos/jobs"
	"github.com/Tishkos/arbatis-pos/report"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	activityLog := activity.NewLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	categoriesService := categories.NewService(categories.NewRepository(dbpool), activityLog)
	productsService := products.NewService(products.NewRepository(dbpool), activityLog)
	motorcyclesService := motorcycles.NewService(motorcycles.NewRepository(dbpool), activityLog)
	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo, activityLog)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, activityLog, idempotencyStore)

	draftStore := drafts.NewStore(redisClient, cfg.DraftTTL)
	resolver := drafts.NewResolver(productsService, motorcyclesService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	invoiceRenderer := report.NewInvoiceRenderer(reportClient)

	invoicesRepo := invoices.NewRepository(dbpool)
	invoicesService := invoices.NewService(logger, invoicesRepo, draftStore, customersService, inventoryService, activityLog, invoiceRenderer)

	draftsService := drafts.NewService(logger, draftStore, resolver, customersService, invoicesService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect jobs queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CategoriesHandler:  categories.NewHandler(logger, categoriesService),
		ProductsHandler:    products.NewHandler(logger, productsService),
		MotorcyclesHandler: motorcycles.NewHandler(logger, motorcyclesService),
		CustomersHandler:   customers.NewHandler(logger, customersService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		DraftsHandler:      drafts.NewHandler(logger, draftsService),
		InvoicesHandler:    invoices.NewHandler(logger, invoicesService),
		ActivityHandler:    activity.NewHandler(logger, activityLog),
		ExportHandler:      export.NewHandler(logger, jobsClient),
		JobHandler:         jobs.NewHandler(inspector, logger),
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
