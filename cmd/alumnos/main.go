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

	"github.com/escuela/alumnos/internal/app"
	"github.com/escuela/alumnos/internal/observability"
	"github.com/escuela/alumnos/internal/platform/cache"
	"github.com/escuela/alumnos/internal/platform/db"
	"github.com/escuela/alumnos/internal/posts"
	"github.com/escuela/alumnos/internal/rbac"
	"github.com/escuela/alumnos/internal/roles"
	"github.com/escuela/alumnos/internal/users"
	"github.com/escuela/alumnos/internal/years"
	"github.com/escuela/alumnos/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	cacheClient := redisClient
	if err != nil {
		// Without Redis every access check reads the directory directly.
		logger.Warn("redis ping, capability cache disabled", slog.Any("error", err))
		cacheClient = nil
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	directory := rbac.NewRepository(dbpool)
	capabilityCache := rbac.NewCache(cacheClient, cfg.CapabilityCacheTTL)
	rbacService := rbac.NewService(directory, capabilityCache, logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Recorder: metrics}

	seeder := rbac.NewSeeder(directory, capabilityCache, logger).WithObserver(metrics)
	go seeder.Run(ctx)

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), rbacMiddleware)
	postsHandler := posts.NewHandler(logger, posts.NewService(posts.NewRepository(dbpool)), rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), rbacMiddleware)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware)
	yearsHandler := years.NewHandler(logger, years.NewRepository(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Readiness:          seeder,
		UsersHandler:       usersHandler,
		PostsHandler:       postsHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		YearsHandler:       yearsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
