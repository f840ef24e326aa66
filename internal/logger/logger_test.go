package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/planforge/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	entry, closer, err := New("backend", config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	entry.WithField("project_id", "p1").Debug("saved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "saved", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "backend", line["service"])
	assert.Equal(t, "p1", line["project_id"])
	assert.Contains(t, line, "ts")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	entry, _, err := New("tui", config.LogConfig{Level: "loud", Format: "text"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())

	entry.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tui.log")
	entry, closer, err := New("tui", config.LogConfig{Format: "text", File: path}, nil)
	require.NoError(t, err)

	entry.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestWithRequestID(t *testing.T) {
	base := Discard()
	assert.Same(t, base, WithRequestID(base, ""))
	assert.Equal(t, "req-1", WithRequestID(base, "req-1").Data["request_id"])
}
