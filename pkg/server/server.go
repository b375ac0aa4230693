// Package server runs the gRPC server of the solver service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"islandflow/pkg/config"
	"islandflow/pkg/interceptors"
	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/pkg/ratelimit"
)

const defaultShutdownTimeout = 30 * time.Second

// GRPCServer wraps a grpc.Server with health reporting, an optional metrics
// endpoint and signal-driven graceful shutdown.
type GRPCServer struct {
	server        *grpc.Server
	health        *health.Server
	serviceName   string
	config        *config.Config
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
	closers       []func(context.Context) error
}

// Options adds collaborators that are built outside the server.
type Options struct {
	Metrics     *metrics.Metrics
	RateLimiter ratelimit.Limiter
	// Closers run in order during shutdown, after the server has stopped.
	Closers []func(context.Context) error
}

func New(cfg *config.Config) *GRPCServer {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg *config.Config, opts *Options) *GRPCServer {
	if opts == nil {
		opts = &Options{}
	}

	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     cfg.GRPC.KeepAlive.MaxConnectionIdle,
		MaxConnectionAge:      cfg.GRPC.KeepAlive.MaxConnectionAge,
		MaxConnectionAgeGrace: cfg.GRPC.KeepAlive.MaxConnectionAgeGrace,
		Time:                  cfg.GRPC.KeepAlive.Time,
		Timeout:               cfg.GRPC.KeepAlive.Timeout,
	}

	kaPolicy := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(kaParams),
		grpc.KeepaliveEnforcementPolicy(kaPolicy),
		grpc.ChainUnaryInterceptor(interceptors.UnaryServerInterceptors(&interceptors.ServerConfig{
			EnableTracing: cfg.Tracing.Enabled,
			Metrics:       opts.Metrics,
			RateLimiter:   opts.RateLimiter,
		})...),
	}
	if cfg.GRPC.MaxRecvMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(cfg.GRPC.MaxRecvMsgSize))
	}
	if cfg.GRPC.MaxSendMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxSendMsgSize(cfg.GRPC.MaxSendMsgSize))
	}

	s := grpc.NewServer(serverOpts...)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)

	if cfg.IsDevelopment() {
		reflection.Register(s)
		logger.Log.Debug("gRPC reflection enabled")
	}

	return &GRPCServer{
		server:      s,
		health:      h,
		serviceName: cfg.App.Name,
		config:      cfg,
		metrics:     opts.Metrics,
		closers:     opts.Closers,
	}
}

// GetEngine returns the grpc.Server services register on.
func (s *GRPCServer) GetEngine() *grpc.Server {
	return s.server
}

// Run listens on the configured port and blocks until SIGINT or SIGTERM.
func (s *GRPCServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.config.GRPC.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(ctx, lis)
}

// Serve runs on lis until ctx is done, then shuts down gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.startMetricsServer()

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("starting gRPC server",
			"service", s.serviceName,
			"addr", lis.Addr().String(),
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()

	if s.metrics != nil {
		s.metrics.SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Log.Info("shutdown requested", "cause", context.Cause(ctx))
	}

	return s.shutdown()
}

func (s *GRPCServer) startMetricsServer() {
	if s.metrics == nil || !s.config.Metrics.Enabled {
		return
	}

	s.metricsServer = metrics.NewServer(s.metrics, s.config.Metrics.Port, s.config.Metrics.Path)
	go func() {
		logger.Log.Info("starting metrics server",
			"port", s.config.Metrics.Port,
			"path", s.config.Metrics.Path,
		)
		if err := s.metricsServer.Start(); err != nil {
			logger.Log.Error("metrics server failed", "error", err)
		}
	}()
}

func (s *GRPCServer) shutdown() error {
	timeout := s.config.GRPC.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Log.Warn("forcing server stop")
		s.server.Stop()
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			logger.Log.Warn("failed to stop metrics server", "error", err)
		}
	}

	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Log.Warn("shutdown finished with errors", "error", err)
	}

	return nil
}

func (s *GRPCServer) SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(s.serviceName, status)
}

func (s *GRPCServer) Stop() {
	s.server.Stop()
}

func (s *GRPCServer) GracefulStop() {
	s.server.GracefulStop()
}
