// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github-dashboard-sync/internal/api"
	"github-dashboard-sync/internal/cache"
	"github-dashboard-sync/internal/config"
	"github-dashboard-sync/internal/database"
	"github-dashboard-sync/internal/github"
	"github-dashboard-sync/internal/kv"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/store"
	"github-dashboard-sync/internal/syncer"
	"github-dashboard-sync/internal/telemetry"
)

const (
	retryInterval   = 500 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs the JSON logger as the default and returns the level knob.
func setupLogger() (*slog.Logger, *slog.LevelVar) {
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, logLevel
}

func loadConfig(logLevel *slog.LevelVar) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	return cfg, nil
}

// application is the component graph, built leaves first.
type application struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	kv              kv.Store
	limiter         *ratelimit.Limiter
	cache           *cache.Cache
	syncer          *syncer.Syncer
	shutdownMetrics func(context.Context) error
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	a := &application{cfg: cfg, logger: logger, shutdownMetrics: func(context.Context) error { return nil }}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// 1. Relational store and schema
	pool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	logger.Info("Database connection established")

	if err := database.MigrateUp(cfg.DBURL); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 2. Shared key-value store
	if cfg.RedisURL != "" {
		rs, err := kv.NewRedisStore(ctx, cfg.RedisURL, cfg.KVPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.kv = rs
		logger.Info("Redis connection established")
	} else {
		a.kv = kv.NewMemoryStore()
		logger.Warn("REDIS_URL not set, locks and cache are local to this process")
	}

	// 3. Metrics
	mp, shutdown, err := telemetry.NewMeterProvider(cfg.MetricsEnabled)
	if err != nil {
		return nil, err
	}
	a.shutdownMetrics = shutdown
	syncMetrics, err := telemetry.NewSyncMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	upstreamMetrics, err := telemetry.NewUpstreamMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream metrics: %w", err)
	}

	// 4. Rate limiter, response cache, upstream client
	a.limiter = ratelimit.New(
		ratelimit.WithLowWaterMark(cfg.RateLimitLowWater),
		ratelimit.WithHourlyBudget(cfg.RateLimitBudget),
		ratelimit.WithLogger(logger),
	)
	a.cache = cache.New(a.kv, cache.Policy{
		Status:  cfg.CacheTTLStatus,
		Listing: cfg.CacheTTLListing,
		Stats:   cfg.CacheTTLStats,
		Default: cfg.CacheTTLDefault,
	}, logger)

	opts := []github.Option{
		github.WithCache(a.cache),
		github.WithMetrics(upstreamMetrics),
		github.WithTimeout(cfg.UpstreamTimeout),
		github.WithRetries(cfg.UpstreamMaxRetries, retryInterval),
	}
	if cfg.GithubAPIURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GithubAPIURL))
	}
	ghClient, err := github.NewClient(cfg.GithubToken, a.limiter, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	// 5. Persistence gateway and orchestrator
	gateway := store.New(database.New(pool), logger)
	a.syncer, err = syncer.NewSyncer(ghClient, gateway, a.kv, logger, syncer.Config{
		Repos:              cfg.ReposToSync,
		Concurrency:        cfg.SyncConcurrency,
		LockTTL:            cfg.SyncLockTTL,
		Interval:           cfg.SyncInterval,
		OnStart:            cfg.SyncOnStart,
		Lookback:           cfg.IncrementalLookback,
		IncrementalCommits: cfg.IncrementalCommits,
		CommitLimit:        cfg.CommitLimit,
		HistoryLimit:       cfg.HistoryLimit,
		RunRetention:       cfg.SyncRunRetention,
	}, syncer.WithLimiter(a.limiter), syncer.WithMetrics(syncMetrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	ok = true
	return a, nil
}

func (a *application) Close() {
	if err := a.shutdownMetrics(context.Background()); err != nil {
		a.logger.Warn("Failed to shut down metrics", "error", err)
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("Failed to close kv store", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// run serves the API and drives the scheduler until ctx is cancelled.
func run(ctx context.Context, a *application) error {
	routerOpts := []api.Option{api.WithCache(a.cache)}
	if a.cfg.MetricsEnabled {
		routerOpts = append(routerOpts, api.WithMetricsHandler(telemetry.Handler()))
	}
	router := api.NewRouter(database.New(a.pool), a.syncer, a.limiter, a.logger, routerOpts...)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "ghdash-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.syncer.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.logger.Info("Application started. Waiting for shutdown signal...")
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received. Exiting.")
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
