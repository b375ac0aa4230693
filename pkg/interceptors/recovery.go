package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"islandflow/pkg/logger"
)

// RecoveryInterceptor turns a panicking handler into an Internal status.
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return recovery.UnaryServerInterceptor(
		recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
			logger.WithContext(ctx).Error("panic in gRPC handler",
				"panic", p,
				"stack", string(debug.Stack()),
			)
			return status.Error(codes.Internal, "internal server error")
		}),
	)
}
