package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumahq/luma/internal/app"
	"github.com/lumahq/luma/internal/authz"
	"github.com/lumahq/luma/internal/observability"
	"github.com/lumahq/luma/internal/platform/cache"
	"github.com/lumahq/luma/internal/platform/db"
	"github.com/lumahq/luma/internal/shared"
	"github.com/lumahq/luma/internal/staff"
	"github.com/lumahq/luma/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	defaults := authz.BuiltinDefaults()
	if cfg.RoleDefaultsPath != "" {
		defaults, err = authz.LoadRoleDefaults(cfg.RoleDefaultsPath)
		if err != nil {
			logger.Error("load role defaults", slog.String("path", cfg.RoleDefaultsPath), slog.Any("error", err))
			os.Exit(1)
		}
	}
	authorizer := authz.NewAuthorizer(defaults)

	metrics := observability.NewMetrics()

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

	staffRepo := staff.NewRepository(pool)
	staffCache := staff.NewCache(redisClient, cfg.PermissionCacheTTL)
	staffService := staff.NewService(staff.ServiceParams{
		Logger:     logger,
		Repo:       staffRepo,
		Authorizer: authorizer,
		Cache:      staffCache,
		Audit:      shared.NewAuditLogger(pool),
		Notifier:   jobs.AccessChangeNotifier{Client: jobsClient},
		Changes:    metrics,
	})

	resolver := &staff.Resolver{Source: staffService, Logger: logger}
	gates := authz.Middleware{Authorizer: authorizer, Logger: logger, Decisions: metrics}
	staffHandler := staff.NewHandler(logger, staffService, gates)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Resolver:     resolver,
		StaffHandler: staffHandler,
		JobHandler:   jobHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
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
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
