// Package logger wraps zap with a context-carried logger. Request paths attach
// fields (request id, target domain) once and every log call further down
// picks them up from the context.
package logger

import (
	"context"
	"log"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	// DevelopmentEnvironment selects a console encoder at debug level.
	DevelopmentEnvironment = "development"

	// ProductionEnvironment selects a JSON encoder at info level.
	ProductionEnvironment = "production"
)

// defaultLogger is used whenever the context carries no logger.
var defaultLogger = zap.NewNop() //nolint: gochecknoglobals

// Setup replaces the default logger according to environment. Unknown
// environments get the development configuration.
func Setup(environment string) {
	var (
		l   *zap.Logger
		err error
	)
	if environment == ProductionEnvironment {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return
	}

	defaultLogger = l
}

type key struct{}

// Get retrieves the logger stored in ctx, falling back to the default logger.
func Get(ctx context.Context) *zap.Logger {
	if logger, _ := ctx.Value(key{}).(*zap.Logger); logger != nil {
		return logger
	}

	return defaultLogger
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// WithFields returns a copy of ctx whose logger includes fields.
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	return WithLogger(ctx, Get(ctx).With(fields...))
}

// IsDebug reports whether the logger in ctx emits debug entries.
func IsDebug(ctx context.Context) bool {
	return Get(ctx).Core().Enabled(zap.DebugLevel)
}

// SlogHandler exposes the logger in ctx as a slog.Handler for libraries that
// only speak log/slog.
func SlogHandler(ctx context.Context) slog.Handler {
	return zapslog.NewHandler(Get(ctx).Core())
}

// StdLogger returns a standard library logger writing through the logger in
// ctx at the given level. net/http's ErrorLog is the main consumer.
func StdLogger(ctx context.Context, level slog.Level) *log.Logger {
	return slog.NewLogLogger(SlogHandler(ctx), level)
}

// Debug logs a message at debug level with the given fields.
func Debug(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Debug(msg, fields...)
}

// Info logs a message at info level with the given fields.
func Info(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Info(msg, fields...)
}

// Warn logs a message at warn level with the given fields.
func Warn(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Warn(msg, fields...)
}

// Error logs a message at error level with the given fields.
func Error(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Error(msg, fields...)
}

// Fatal logs a message at fatal level with the given fields, then exits.
func Fatal(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Fatal(msg, fields...)
}
