package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigure(t *testing.T) {
	cfg := configure(zapcore.DebugLevel, "")
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Equal(t, "timestamp", cfg.EncoderConfig.TimeKey)

	cfg = configure(zapcore.WarnLevel, "json")
	assert.Equal(t, "json", cfg.Encoding)
}

func TestInit(t *testing.T) {
	err := Init("info", "json", zap.String("service", "museum-radar"))
	assert.NoError(t, err)
	assert.NotNil(t, Log)

	// second call keeps the first logger
	first := Log
	assert.NoError(t, Init("debug", "console"))
	assert.Same(t, first, Log)
}
