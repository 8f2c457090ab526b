package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger. Unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	parsed, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	return cfg.Build()
}

// Must panics when the logger cannot be created.
func Must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return logger
}

// Named returns a child logger for a component. A nil base yields a no-op logger.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
