package observe

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger at the given level ("debug", "info", ...).
// Output goes to path, or stderr when path is empty. Development loggers use
// the console encoder.
func NewLogger(level, path string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// OrDefault returns m, or the package default when m is nil.
func OrDefault(m *Metrics) *Metrics {
	if m == nil {
		return DefaultMetrics()
	}
	return m
}
