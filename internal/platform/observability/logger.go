// Package observability provides structured logging and tracing middleware.
package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
)

const defaultLogLevel = zapcore.InfoLevel

// NewLogger builds a JSON zap logger whose keys match Cloud Logging. LOG_LEVEL selects the level.
func NewLogger() (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(defaultLogLevel)
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			level.SetLevel(defaultLogLevel)
		}
	}

	cfg := zap.Config{
		Level:    level,
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			TimeKey:       "timestamp",
			LevelKey:      "severity",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel:   zapcore.CapitalLevelEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return cfg.Build()
}

// EventLogger adapts a zap logger to the event callback used by services.
// Events containing an "error" field are logged at warn level.
func EventLogger(logger *zap.Logger, component string) func(context.Context, string, map[string]any) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := logger.Named(component)
	return func(ctx context.Context, event string, fields map[string]any) {
		base := fallback
		if scoped := requestctx.Logger(ctx); scoped != requestctx.NoopLogger() {
			base = scoped.Named(component)
		}
		zapFields := make([]zap.Field, 0, len(fields)+1)
		zapFields = append(zapFields, zap.String("event", event))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		if _, failed := fields["error"]; failed {
			base.Warn(event, zapFields...)
			return
		}
		base.Info(event, zapFields...)
	}
}
