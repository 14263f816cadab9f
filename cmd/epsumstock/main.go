package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/epsum/epsumstock/internal/app"
	"github.com/epsum/epsumstock/internal/catalog"
	"github.com/epsum/epsumstock/internal/dashboard"
	"github.com/epsum/epsumstock/internal/observability"
	"github.com/epsum/epsumstock/internal/orders"
	"github.com/epsum/epsumstock/internal/platform/cache"
	"github.com/epsum/epsumstock/internal/platform/db"
	"github.com/epsum/epsumstock/internal/shared"
	"github.com/epsum/epsumstock/internal/tenant"
	"github.com/epsum/epsumstock/internal/tenant/memory"
	"github.com/epsum/epsumstock/internal/tenant/postgres"
	"github.com/epsum/epsumstock/jobs"
	"github.com/epsum/epsumstock/report"
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

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	var idempotency orders.IdempotencyStore
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Warn("redis unavailable, idempotency keys disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		idempotency = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	}

	metrics := observability.NewMetrics()

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	catalogService := catalog.NewService(store, catalog.Config{PageSize: cfg.ListPageSize})
	catalogHandler := catalog.NewHandler(logger, catalogService, jobClient)

	ordersService := orders.NewService(store, report.NewOrderRenderer(reportClient), metrics, orders.Config{PageSize: cfg.OrderPageSize})
	ordersHandler := orders.NewHandler(logger, ordersService, idempotency)

	dashboardHandler := dashboard.NewHandler(logger, dashboard.NewService(store))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		OrdersHandler:    ordersHandler,
		DashboardHandler: dashboardHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func openStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (tenant.Store, func(), error) {
	switch cfg.StoreDriver {
	case app.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	case app.StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, nil, err
		}
		if cfg.PGAutoMigrate {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.NewStore(pool, postgres.Options{MaxAttempts: cfg.TxMaxAttempts}), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
