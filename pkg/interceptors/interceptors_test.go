package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"islandflow/pkg/apperror"
	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/pkg/ratelimit"
)

func init() {
	logger.Init("error")
}

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

func okHandler(_ context.Context, _ any) (any, error) {
	return "response", nil
}

func errorHandler(_ context.Context, _ any) (any, error) {
	return nil, status.Error(codes.Internal, "internal error")
}

func panicHandler(_ context.Context, _ any) (any, error) {
	panic("test panic")
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor()

	t.Run("normal execution", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "request", testInfo, okHandler)

		require.NoError(t, err)
		assert.Equal(t, "response", resp)
	})

	t.Run("panic recovery", func(t *testing.T) {
		_, err := interceptor(context.Background(), "request", testInfo, panicHandler)

		require.Error(t, err)
		assert.Equal(t, codes.Internal, status.Code(err))
	})
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()

	t.Run("propagates incoming id", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs(RequestIDHeader, "req-42"))

		var seen string
		_, err := interceptor(ctx, "request", testInfo, func(ctx context.Context, _ any) (any, error) {
			seen = logger.RequestIDFromContext(ctx)
			return nil, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "req-42", seen)
	})

	t.Run("generates missing id", func(t *testing.T) {
		var seen string
		_, err := interceptor(context.Background(), "request", testInfo, func(ctx context.Context, _ any) (any, error) {
			seen = logger.RequestIDFromContext(ctx)
			return nil, nil
		})

		require.NoError(t, err)
		assert.Len(t, seen, 36)
	})
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	interceptor := LoggingInterceptor(l)

	ctx := logger.ContextWithRequestID(context.Background(), "req-7")

	_, err := interceptor(ctx, "request", testInfo, okHandler)
	require.NoError(t, err)

	_, err = interceptor(ctx, "request", testInfo, errorHandler)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "finished call")
	assert.Contains(t, out, "req-7")
	assert.Contains(t, out, "Method")
	assert.Contains(t, out, "Internal")
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.New("test", "interceptors")
	interceptor := MetricsInterceptor(m)

	_, _ = interceptor(context.Background(), "request", testInfo, okHandler)
	_, _ = interceptor(context.Background(), "request", testInfo, okHandler)
	_, _ = interceptor(context.Background(), "request", testInfo, errorHandler)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues(testInfo.FullMethod, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues(testInfo.FullMethod, "Internal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GRPCRequestsInFlight))
}

type validatedRequest struct {
	err error
}

func (r validatedRequest) Validate() error {
	return r.err
}

func TestValidationInterceptor(t *testing.T) {
	interceptor := ValidationInterceptor()

	tests := []struct {
		name string
		req  any
		code codes.Code
	}{
		{"not a validator", "plain", codes.OK},
		{"valid", validatedRequest{}, codes.OK},
		{"coded error", validatedRequest{err: apperror.NewWithField(apperror.CodeInvalidIsland, "bad island", "bridges[0].to")}, codes.InvalidArgument},
		{"limit", validatedRequest{err: apperror.New(apperror.CodeLimitExceeded, "too big")}, codes.ResourceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(context.Background(), tt.req, testInfo, okHandler)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestUnaryServerInterceptors(t *testing.T) {
	assert.Len(t, UnaryServerInterceptors(nil), 4)
	assert.Len(t, UnaryServerInterceptors(&ServerConfig{
		EnableTracing: true,
		Metrics:       metrics.New("test", "chain"),
	}), 6)

	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{Requests: 1, Window: time.Second})
	t.Cleanup(func() { _ = limiter.Close() })
	assert.Len(t, UnaryServerInterceptors(&ServerConfig{RateLimiter: limiter}), 5)
}

func TestRateLimitInterceptor(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{Requests: 2, Window: time.Minute})
	t.Cleanup(func() { _ = limiter.Close() })
	interceptor := RateLimitInterceptor(limiter)

	fromHost := func(host string, port int) context.Context {
		return peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.ParseIP(host), Port: port},
		})
	}

	for port := 1000; port < 1002; port++ {
		_, err := interceptor(fromHost("10.0.0.1", port), "request", testInfo, okHandler)
		require.NoError(t, err)
	}

	_, err := interceptor(fromHost("10.0.0.1", 1003), "request", testInfo, okHandler)
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, apperror.CodeRateLimited, apperror.FromGRPC(err).Code)

	_, err = interceptor(fromHost("10.0.0.2", 1000), "request", testInfo, okHandler)
	assert.NoError(t, err, "other hosts keep their budget")
}

func TestRateLimitInterceptor_LimiterFailureLetsCallThrough(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{Requests: 1, Window: time.Minute})
	require.NoError(t, limiter.Close())

	resp, err := RateLimitInterceptor(limiter)(context.Background(), "request", testInfo, okHandler)
	require.NoError(t, err)
	assert.Equal(t, "response", resp)
}
