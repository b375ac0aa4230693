package interceptors

import (
	"context"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"

	"islandflow/pkg/logger"
)

// InterceptorLogger adapts slog to the go-grpc-middleware logging API.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

// LoggingInterceptor logs every finished call with its code, duration and
// request id.
func LoggingInterceptor(l *slog.Logger) grpc.UnaryServerInterceptor {
	return logging.UnaryServerInterceptor(InterceptorLogger(l),
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithFieldsFromContext(func(ctx context.Context) logging.Fields {
			if id := logger.RequestIDFromContext(ctx); id != "" {
				return logging.Fields{"request_id", id}
			}
			return nil
		}),
	)
}
