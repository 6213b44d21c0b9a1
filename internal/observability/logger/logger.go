package logger

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/EquidnaMX/stag-herd/internal/config"
	obsctx "github.com/EquidnaMX/stag-herd/internal/observability/context"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Level:       cfg.Observability.LogLevel,
	}
}

var Module = fx.Module("logger",
	fx.Provide(ConfigFrom),
	fx.Provide(New),
)

// New builds the process logger and installs it as the zap global so
// FromContext can decorate it. Production emits JSON, anything else console.
func New(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if !strings.EqualFold(strings.TrimSpace(cfg.Environment), "production") {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Environment),
		zap.String("version", cfg.Version),
	)
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger with request and trace fields.
func FromContext(ctx context.Context) *zap.Logger {
	return With(zap.L(), ctx)
}

// With decorates log with the request id, webhook provider and active span of ctx.
func With(log *zap.Logger, ctx context.Context) *zap.Logger {
	if log == nil {
		log = zap.L()
	}
	if ctx == nil {
		return log
	}
	var fields []zap.Field
	if requestID := obsctx.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if provider := obsctx.ProviderFromContext(ctx); provider != "" {
		fields = append(fields, zap.String("provider", provider))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
