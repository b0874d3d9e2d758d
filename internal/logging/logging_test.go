package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WarnLevelByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Stderr: &buf})
	require.NoError(t, err)

	logger.Named("mux").Info("hidden")
	logger.Named("mux").Warn("persist failed", zap.String("source", "api-0"))
	require.NoError(t, cleanup())

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "W")
	require.Contains(t, out, "mux")
	require.Contains(t, out, "persist failed")
	require.Contains(t, out, `"source": "api-0"`)
	require.NotContains(t, out, "\033[", "colors are off unless requested")
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Stderr: &buf, Debug: true})
	require.NoError(t, err)

	logger.Debug("spawn worker")
	require.NoError(t, cleanup())
	require.Contains(t, buf.String(), "spawn worker")
}

func TestNew_ColoredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Stderr: &buf, Colors: true})
	require.NoError(t, err)

	logger.Error("boom")
	require.NoError(t, cleanup())
	require.Contains(t, buf.String(), brightRed+bold+"E"+reset)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	logger, cleanup, err := New(Options{File: path, Disabled: true, Debug: true, Colors: true})
	require.NoError(t, err)

	logger.Debug("to file")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
	require.False(t, strings.Contains(string(data), "\033["), "file output is never colored")
}

func TestNew_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Disabled: true, Stderr: &buf})
	require.NoError(t, err)

	logger.Error("dropped")
	require.NoError(t, cleanup())
	require.Empty(t, buf.String())
}
