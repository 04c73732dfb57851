package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected zapcore.Level
	}{
		{"debug", "debug", zapcore.DebugLevel},
		{"warn", "warn", zapcore.WarnLevel},
		{"error", "error", zapcore.ErrorLevel},
		{"empty falls back to info", "", zapcore.InfoLevel},
		{"unknown falls back to info", "verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	output := filepath.Join(t.TempDir(), "filedrop.log")

	logger, level, err := New(Config{Level: "warn", Format: "json", Output: output})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync()

	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	assert.True(t, SetLevel(level, "debug"))
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	assert.False(t, SetLevel(level, "nope"))
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}
