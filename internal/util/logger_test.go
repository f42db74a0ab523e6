package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBuildLogConfig(t *testing.T) {
	tests := []struct {
		name     string
		opts     LogOptions
		level    zapcore.Level
		encoding string
	}{
		{name: "production default", opts: LogOptions{Env: "production"}, level: zapcore.InfoLevel, encoding: "json"},
		{name: "development default", opts: LogOptions{Env: "development"}, level: zapcore.DebugLevel, encoding: "console"},
		{name: "level override", opts: LogOptions{Env: "production", Level: "warn"}, level: zapcore.WarnLevel, encoding: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := buildLogConfig(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.level, config.Level.Level())
			assert.Equal(t, tt.encoding, config.Encoding)
		})
	}
}

func TestBuildLogConfigRejectsUnknownLevel(t *testing.T) {
	_, err := buildLogConfig(LogOptions{Level: "loud"})
	assert.Error(t, err)
}

func TestGetLoggerBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
