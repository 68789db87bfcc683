package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "warn", JSON: true, Output: zapcore.AddSync(&buf)})

	l.Info("dropped")
	l.Warn("kept", zap.String("request_id", "r1"))
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "r1", entry["request_id"])
	assert.Contains(t, entry, "ts")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "loud", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("shown")
	done()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestToStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "debug", JSON: true, Output: zapcore.AddSync(&buf)})

	std := ToStdLogger(l, zapcore.WarnLevel)
	std.Printf("slow query %d ms\n", 250)
	done()

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "slow query 250 ms")
}
