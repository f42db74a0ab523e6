package util

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.Mutex
	logger   *zap.Logger
)

// LogOptions selects the encoder and threshold of the global logger.
type LogOptions struct {
	// Env "production" logs JSON at info; anything else logs colored console
	// output at debug.
	Env string
	// Level overrides the env default when set ("debug", "warn", ...).
	Level string
	// Component tags every entry, e.g. "server" or "cli".
	Component string
}

func buildLogConfig(opts LogOptions) (zap.Config, error) {
	var config zap.Config
	if opts.Env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}
	return config, nil
}

// InitLogger initializes the global logger
func InitLogger(opts LogOptions) error {
	config, err := buildLogConfig(opts)
	if err != nil {
		return err
	}

	fields := []zap.Field{zap.String("service", ServiceName)}
	if opts.Component != "" {
		fields = append(fields, zap.String("component", opts.Component))
	}
	built, err := config.Build(zap.Fields(fields...))
	if err != nil {
		return err
	}

	loggerMu.Lock()
	logger = built
	loggerMu.Unlock()

	zap.ReplaceGlobals(built)
	return nil
}

// GetLogger returns the global logger. Before InitLogger it is a no-op logger.
func GetLogger() *zap.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	_ = GetLogger().Sync()
}
