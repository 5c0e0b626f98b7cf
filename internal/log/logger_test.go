package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = NewOutput(&buf)
	return New(cfg), &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"Warning", LevelWarn},
		{"ERROR", LevelError},
		{"CRITICAL", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("whatever"))
	assert.Equal(t, "json", FormatJSON.String())
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatText)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "k=v")
	assert.True(t, logger.Enabled(context.Background(), LevelError))
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestLoggerJSONWithAttributes(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)

	logger.With("session", "abcd1234").WithGroup("loop").Info("iteration", "n", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "iteration", entry["msg"])
	assert.Equal(t, "abcd1234", entry["session"])
	loop, ok := entry["loop"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, loop["n"])
}

func TestLogErrorCoded(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	logger.LogError(errors.NewGoalNotFoundError("GOAL.txt"), "initialize failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GOAL-002", entry["error_code"])
	assert.Equal(t, "initialize failed", entry["msg"])
}

func TestWithErrorPlain(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatText)
	logger.WithError(assert.AnError).Warn("failed")
	assert.Contains(t, buf.String(), "general error for testing")

	assert.Same(t, logger, logger.WithError(nil))
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("nothing")
	assert.False(t, logger.Enabled(context.Background(), LevelError))
}

func TestOutputFileAndMulti(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	file, err := OutputFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = MultiOutput(NewOutput(&buf), file)
	logger := New(cfg)

	logger.Info("to both")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to both"))
	assert.Contains(t, buf.String(), "to both")
}

func TestDefaultLogger(t *testing.T) {
	custom := Nop()
	SetDefault(custom)
	t.Cleanup(func() { SetDefault(nil) })

	assert.Same(t, custom, DefaultLogger())
}

func TestLevelText(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, LevelDebug, l)

	out, err := LevelError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ERROR", string(out))
}
