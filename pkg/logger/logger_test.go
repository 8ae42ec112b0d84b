package logger_test

import (
	"context"
	"domainprobe/pkg/logger"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		debug       bool
	}{
		{name: "development", environment: logger.DevelopmentEnvironment, debug: true},
		{name: "production", environment: logger.ProductionEnvironment, debug: false},
		{name: "unknown falls back to development", environment: "staging", debug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				logger.Setup(tt.environment)
			})

			ctx := context.Background()
			require.NotNil(t, logger.Get(ctx))
			require.Equal(t, tt.debug, logger.IsDebug(ctx))
		})
	}
}

func TestGetPrefersContextLogger(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)
	ctx := context.Background()

	require.NotNil(t, logger.Get(ctx), "should return default logger when context has none")

	custom := zap.NewExample()
	require.Equal(t, custom, logger.Get(logger.WithLogger(ctx, custom)))
}

func TestWithFieldsAreEmitted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	ctx = logger.WithFields(ctx, zap.String("domain", "example.com"))
	logger.Info(ctx, "cache updated")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "cache updated", entries[0].Message)
	require.Equal(t, "example.com", entries[0].ContextMap()["domain"])
}

func TestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	levels := make([]zapcore.Level, 0, logs.Len())
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	require.Equal(t, []zapcore.Level{zap.DebugLevel, zap.InfoLevel, zap.WarnLevel, zap.ErrorLevel}, levels)
}

func TestStdLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	std := logger.StdLogger(ctx, slog.LevelError)
	std.Print("http: TLS handshake error")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, zap.ErrorLevel, logs.All()[0].Level)
	require.Contains(t, logs.All()[0].Message, "TLS handshake error")
}

func TestIsDebugWithInfoLogger(t *testing.T) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	infoLogger, err := cfg.Build()
	require.NoError(t, err)

	require.False(t, logger.IsDebug(logger.WithLogger(context.Background(), infoLogger)))
}
