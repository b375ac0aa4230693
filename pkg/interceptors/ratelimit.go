package interceptors

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"islandflow/pkg/apperror"
	"islandflow/pkg/logger"
	"islandflow/pkg/ratelimit"
)

// RateLimitInterceptor rejects calls from peers that used up their budget
// with RESOURCE_EXHAUSTED. Peers are keyed by host so that every connection
// from one machine shares a budget. A failing limiter lets the call through.
func RateLimitInterceptor(l ratelimit.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		key := peerKey(ctx)

		allowed, err := l.Allow(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Warn("rate limiter failed", "peer", key, "error", err)
			return handler(ctx, req)
		}
		if !allowed {
			return nil, apperror.ToGRPC(apperror.New(apperror.CodeRateLimited, "too many requests").
				WithDetails("peer", key).
				WithDetails("method", info.FullMethod))
		}

		return handler(ctx, req)
	}
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}

	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
