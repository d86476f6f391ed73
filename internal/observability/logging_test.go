package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/chatrooms/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level    string
		format   string
		minLevel zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel},
		{"info", "json", zapcore.InfoLevel},
		{"warn", "json", zapcore.WarnLevel},
		{"error", "console", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Format: tt.format}, "chatserver")
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.minLevel))
			if tt.minLevel > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.minLevel-1))
			}
		})
	}
}

func TestNewLogger_Rejects(t *testing.T) {
	for name, cfg := range map[string]config.LoggingConfig{
		"unknown level":  {Level: "trace", Format: "json"},
		"unknown format": {Level: "info", Format: "xml"},
		"empty":          {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewLogger(cfg, "chatserver")
			assert.Error(t, err)
		})
	}
}
