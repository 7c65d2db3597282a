package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type requestIDKey struct{}

// New builds the process logger. Production gets the JSON encoder,
// everything else the console encoder.
func New(level, env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// WithRequestID stores the request id for loggers built from ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id set by the request id middleware.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides request-scoped structured logging for services.
type Logger struct {
	base      *zap.Logger
	requestID string
}

// NewLogger creates a logger bound to the request id in ctx.
func NewLogger(ctx context.Context) *Logger {
	rid := RequestID(ctx)
	if rid == "" {
		rid = "unknown"
	}
	return &Logger{base: zap.L(), requestID: rid}
}

func (l *Logger) with(operation string) *zap.Logger {
	return l.base.With(zap.String("request_id", l.requestID), zap.String("operation", operation))
}

func (l *Logger) LogError(operation string, err error) {
	l.with(operation).Error("operation failed", zap.Error(err))
}

func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.with(operation).Error(fmt.Sprintf(format, args...))
}

func (l *Logger) LogInfo(operation string, message string, fields ...zap.Field) {
	l.with(operation).Info(message, fields...)
}

func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.with(operation).Info(fmt.Sprintf(format, args...))
}

func (l *Logger) LogWarn(operation string, message string, fields ...zap.Field) {
	l.with(operation).Warn(message, fields...)
}

func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.with(operation).Warn(fmt.Sprintf(format, args...))
}
