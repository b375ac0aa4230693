package main

import (
	"context"
	"fmt"
	"time"

	"islandflow/migrations"
	solverv1 "islandflow/pkg/api/solverv1"
	"islandflow/pkg/cache"
	"islandflow/pkg/config"
	"islandflow/pkg/database"
	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/pkg/ratelimit"
	"islandflow/pkg/server"
	"islandflow/pkg/telemetry"
	"islandflow/services/solver-svc/internal/repository"
	"islandflow/services/solver-svc/internal/service"
)

// serve blocks until the server is asked to stop.
func serve(ctx context.Context, cfg *config.Config) error {
	var closers []func(context.Context) error
	// once the server runs, its shutdown owns the closers
	running := false
	defer func() {
		if running {
			return
		}
		for _, c := range closers {
			_ = c(context.Background())
		}
	}()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg))
	if err != nil {
		logger.Log.Warn("failed to init telemetry, continuing without tracing", "error", err)
	} else {
		closers = append(closers, tp.Shutdown)
		if cfg.Tracing.Enabled {
			logger.Log.Info("telemetry initialized",
				"endpoint", cfg.Tracing.Endpoint,
				"sample_rate", cfg.Tracing.SampleRate,
			)
		}
	}

	opts := []service.Option{}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
		opts = append(opts, service.WithMetrics(m))
	}

	// The cache is optional: the service keeps running without it.
	if cfg.Cache.Enabled {
		c, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("failed to create cache, continuing without cache", "error", err)
		} else {
			opts = append(opts, service.WithAnswerCache(cache.NewAnswerCache(c, cfg.Cache.DefaultTTL)))
			closers = append(closers, func(context.Context) error { return c.Close() })
			logger.Log.Info("answer cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	// History is not optional once enabled: a misconfigured database fails
	// startup instead of silently dropping records.
	if cfg.Database.Enabled {
		db, err := openHistory(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithHistory(repository.NewPostgresSolveRepository(db)))
		closers = append(closers, func(context.Context) error {
			db.Close()
			return nil
		})
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(rateLimitConfig(cfg))
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		closers = append(closers, func(context.Context) error { return limiter.Close() })
	}

	svc := service.NewSolverService(service.ConfigFromSolver(cfg.Solver), opts...)

	srv := server.NewWithOptions(cfg, &server.Options{
		Metrics:     m,
		RateLimiter: limiter,
		Closers:     closers,
	})
	solverv1.RegisterSolverServiceServer(srv.GetEngine(), service.NewGRPCServer(svc))

	logger.Info("starting solver service",
		"port", cfg.GRPC.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"cache_enabled", cfg.Cache.Enabled,
		"history_enabled", cfg.Database.Enabled,
		"rate_limit_enabled", cfg.RateLimit.Enabled,
	)

	running = true
	return srv.Run()
}

func openHistory(ctx context.Context, cfg *config.DatabaseConfig) (*database.PostgresDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.NewPostgresDB(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("solve history: %w", err)
	}

	if err := database.RunMigrations(connectCtx, db, cfg, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("solve history: %w", err)
	}

	return db, nil
}

func rateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Backend = cfg.RateLimit.Backend
	rl.Requests = cfg.RateLimit.Requests
	rl.Window = cfg.RateLimit.Window
	rl.Burst = cfg.RateLimit.Burst
	rl.RedisAddr = cfg.Cache.Address()
	rl.RedisPassword = cfg.Cache.Password
	rl.RedisDB = cfg.Cache.DB
	return rl
}
