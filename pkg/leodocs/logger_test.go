package leodocs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		"INFO":    LogInfo,
		" warn ":  LogWarn,
		"warning": LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"verbose": LogInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
	assert.Equal(t, "WARN", LogWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogWarn)

	logger.Debug("debug %d", 1)
	logger.Info("info")
	logger.Warn("careful with %s", "images")
	logger.Error("failed")

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "careful with images")
	assert.Contains(t, out, "failed")
	assert.False(t, logger.IsDebugMode())

	logger.SetLevel(LogDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.True(t, logger.IsDebugMode())
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core), LogDebug)

	logger.WithFields(Fields{"template": "minutes.docx", "parts": 2}).WithField("cache_hit", true).Info("Prepared")
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "Prepared", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "minutes.docx", ctx["template"])
		assert.Equal(t, int64(2), ctx["parts"])
		assert.Equal(t, true, ctx["cache_hit"])
	}
}

func TestDerivedLoggersShareLevel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core), LogInfo)
	child := logger.WithField("part", "word/document.xml")

	child.Debug("hidden")
	logger.SetLevel(LogDebug)
	child.Debug("shown")
	assert.Equal(t, 1, logs.FilterMessage("shown").Len())
	assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.False(t, logger.IsDebugMode())
	logger.Error("nothing happens")
	assert.NoError(t, logger.Sync())
}
