// Package client dials a remote solver service.
package client

import (
	"context"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"islandflow/pkg/config"
	"islandflow/pkg/interceptors"
	"islandflow/pkg/logger"
)

type ClientConfig struct {
	Address string
	// Timeout bounds one call including its retries. Zero disables it.
	Timeout      time.Duration
	MaxRetries   uint
	RetryBackoff time.Duration
}

func FromConfig(cfg config.ClientConfig) ClientConfig {
	return ClientConfig{
		Address:      cfg.Address,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
}

// NewGRPCClient creates a connection that retries Unavailable calls with
// exponential backoff and forwards the request id of the context.
func NewGRPCClient(cfg ClientConfig, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithBackoff(grpc_retry.BackoffExponential(cfg.RetryBackoff)),
		grpc_retry.WithCodes(codes.Unavailable),
		grpc_retry.WithMax(cfg.MaxRetries),
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			requestIDClientInterceptor(),
			grpc_retry.UnaryClientInterceptor(retryOpts...),
		),
	}
	dialOpts = append(dialOpts, extra...)

	return grpc.NewClient(cfg.Address, dialOpts...)
}

func requestIDClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id := logger.RequestIDFromContext(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, interceptors.RequestIDHeader, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
