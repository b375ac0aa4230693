// Package logger holds the process-wide slog logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is usable before Init: it writes text to stderr at info level.
var Log = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Config describes where and how to log.
type Config struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, stderr, file, discard
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type requestIDKey struct{}

// Init sets up a JSON logger on stdout.
func Init(level string) {
	InitWithConfig(Config{
		Level:  level,
		Format: "json",
		Output: "stdout",
	})
}

// InitWithConfig replaces Log according to cfg.
func InitWithConfig(cfg Config) {
	Log = New(cfg)
	slog.SetDefault(Log)
}

// New builds a logger without touching the package state.
func New(cfg Config) *slog.Logger {
	lvl := ParseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	writer := openWriter(cfg)

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriter(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/solver.log"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return os.Stderr
		}
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		return os.Stdout
	}
}

// ContextWithRequestID stores a request id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithContext returns Log enriched with the request id and trace id found in ctx.
func WithContext(ctx context.Context, args ...any) *slog.Logger {
	l := Log
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With("trace_id", sc.TraceID().String())
	}
	if len(args) > 0 {
		l = l.With(args...)
	}
	return l
}

func WithRequestID(requestID string) *slog.Logger {
	return Log.With("request_id", requestID)
}

func WithService(service string) *slog.Logger {
	return Log.With("service", service)
}

func WithComponent(component string) *slog.Logger {
	return Log.With("component", component)
}

func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
