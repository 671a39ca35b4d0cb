package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_SplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l, err := New(Options{Level: zapcore.InfoLevel, Format: FormatJSON, Out: &out, ErrOut: &errOut})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("request served", slog.String("path", "/healthz"), slog.Int("status", 200))
	l.Warn("session expired", slog.String("account", "alice"))
	require.NoError(t, l.Sync())

	require.NotContains(t, out.String(), "hidden")

	var info map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &info))
	assert.Equal(t, "request served", info["msg"])
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "/healthz", info["path"])
	assert.EqualValues(t, 200, info["status"])

	var warn map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(errOut.Bytes()), &warn))
	assert.Equal(t, "session expired", warn["msg"])
	assert.Equal(t, "alice", warn["account"])
}

func TestNew_DebugLevel(t *testing.T) {
	var out bytes.Buffer
	l, err := New(Options{Level: zapcore.DebugLevel, Out: &out, ErrOut: &out})
	require.NoError(t, err)

	l.Debug("visible")
	assert.Contains(t, out.String(), "visible")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	require.Error(t, err)
}
