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

	"github.com/odyssey-erp/shopdesk/internal/app"
	"github.com/odyssey-erp/shopdesk/internal/auth"
	"github.com/odyssey-erp/shopdesk/internal/live"
	"github.com/odyssey-erp/shopdesk/internal/observability"
	"github.com/odyssey-erp/shopdesk/internal/platform/cache"
	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
	"github.com/odyssey-erp/shopdesk/internal/shared"
	"github.com/odyssey-erp/shopdesk/jobs"
)

func main() {
	if app.SkipStartup("server") {
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

	dbpool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConn, ConnectTimeout: 5 * time.Second})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := docstore.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := cfg.Redis().Asynq()
	jobClient := asynq.NewClient(redisOpts)
	defer func() { _ = jobClient.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	metrics := observability.NewMetrics()
	hub := live.NewHub(logger, cfg.AllowedOrigins...)
	go hub.Run(ctx)

	verifier := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if !verifier.Enabled() {
		logger.Warn("AUTH_JWT_SECRET empty, token verification disabled", slog.String("actor", auth.DevSubject))
	}

	services, err := app.BuildServices(app.ServiceParams{
		Config: cfg,
		Logger: logger,
		Pool:   dbpool,
		Redis:  redisClient,
		Events: shared.Publishers{hub, metrics, jobs.NewEventEnqueuer(jobClient, logger)},
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	if err := services.ReportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Verifier:   verifier,
		Metrics:    metrics,
		Handlers:   services.Handlers(logger),
		Live:       hub.Handler(verifier),
		JobsHealth: jobs.NewHandler(inspector, logger),
		Ready: func(r *http.Request) error {
			return dbpool.Ping(r.Context())
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.AppReadTimeout,
		// WriteTimeout stays unset: /live connections are long-lived and the
		// API group carries its own request timeout.
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("shopdesk listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}
