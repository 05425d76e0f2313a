package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEnvVar selects the log level ("debug", "info", "warn", "error").
const LogEnvVar = "DOCBERT_LOG"

// NewLogger returns a zap logger configured from DOCBERT_LOG. "debug" uses
// the development config (human-readable console output); everything else
// uses the production config at the requested level, defaulting to info.
// Logs go to stderr so stdout stays clean for command output and MCP framing.
func NewLogger() (*zap.Logger, error) {
	level := strings.ToLower(strings.TrimSpace(os.Getenv(LogEnvVar)))
	if level == "debug" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	switch level {
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// NewLoggerOrNop returns a configured logger, falling back to a no-op logger
// when construction fails. Callers that cannot act on a logging failure use
// this at startup.
func NewLoggerOrNop() *zap.Logger {
	logger, err := NewLogger()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
