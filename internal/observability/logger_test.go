package observability

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "test"}, zapcore.AddSync(&buf))

	logger.Debug("tool invoked", zap.String("tool", "computer"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "test", entry["logger"])
	assert.Equal(t, "tool invoked", entry["msg"])
	assert.Equal(t, "computer", entry["tool"])
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggerConfig{Level: "chatty", Format: "json"}, zapcore.AddSync(&buf))

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "agent.log")
	logger := NewLogger(config.LoggerConfig{Level: "info", Format: "console", LogFile: file, MaxSize: 1}, zapcore.AddSync(&console))

	logger.Info("run finished")
	Sync(logger)

	assert.Contains(t, console.String(), "run finished")
	assert.FileExists(t, file)
}
