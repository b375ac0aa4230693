// Package interceptors holds the unary server interceptors of the solver
// service.
package interceptors

import (
	"log/slog"

	"google.golang.org/grpc"

	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/pkg/ratelimit"
	"islandflow/pkg/telemetry"
)

// ServerConfig selects the interceptors of a server.
type ServerConfig struct {
	EnableTracing bool
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Logger defaults to logger.Log.
	Logger *slog.Logger
	// RateLimiter is optional. Rejected calls are still logged and counted.
	RateLimiter ratelimit.Limiter
}

// UnaryServerInterceptors returns the chain in execution order: recovery,
// request id, tracing, metrics, logging, rate limit, validation.
func UnaryServerInterceptors(cfg *ServerConfig) []grpc.UnaryServerInterceptor {
	if cfg == nil {
		cfg = &ServerConfig{}
	}

	chain := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(),
		RequestIDInterceptor(),
	}

	if cfg.EnableTracing {
		chain = append(chain, telemetry.UnaryServerInterceptor())
	}

	if cfg.Metrics != nil {
		chain = append(chain, MetricsInterceptor(cfg.Metrics))
	}

	l := cfg.Logger
	if l == nil {
		l = logger.Log
	}
	chain = append(chain, LoggingInterceptor(l))

	if cfg.RateLimiter != nil {
		chain = append(chain, RateLimitInterceptor(cfg.RateLimiter))
	}

	chain = append(chain, ValidationInterceptor())

	return chain
}
