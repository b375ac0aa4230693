package interceptors

import (
	"context"

	"google.golang.org/grpc"

	"islandflow/pkg/apperror"
)

// Validator is implemented by requests that can check themselves.
type Validator interface {
	Validate() error
}

// ValidationInterceptor rejects invalid requests before they reach the
// handler. Coded errors keep their code on the wire.
func ValidationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if v, ok := req.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, apperror.ToGRPC(err)
			}
		}

		return handler(ctx, req)
	}
}
