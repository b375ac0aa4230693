package interceptors

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"islandflow/pkg/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// RequestIDInterceptor takes the request id from incoming metadata, or makes
// one up, stores it in the context and echoes it in the response header.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := requestIDFromMetadata(ctx)
		if id == "" {
			id = uuid.NewString()
		}

		ctx = logger.ContextWithRequestID(ctx, id)
		// fails outside a real transport stream, which only matters in tests
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		return handler(ctx, req)
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDHeader); len(values) > 0 {
		return values[0]
	}
	return ""
}
