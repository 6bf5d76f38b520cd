package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Options{Env: "test", Dir: dir, ConsoleLevel: zapcore.InfoLevel, Console: &console})
	require.NoError(t, err)

	logger.Debug("debug only in file")
	logger.Info("solved", zap.Int("workers", 3))
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "solved")
	assert.NotContains(t, console.String(), "debug only in file")

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"debug only in file"`)
	assert.Contains(t, lines[1], `"workers":3`)
	assert.Contains(t, lines[1], `"env":"test"`)
}

func TestNewAtLevel(t *testing.T) {
	t.Run("debug level reaches the console", func(t *testing.T) {
		dir := t.TempDir()
		var console bytes.Buffer

		logger, err := NewAtLevel(Options{Env: "test", Dir: dir, Console: &console}, "debug")
		require.NoError(t, err)

		logger.Debug("loading configuration")
		require.NoError(t, logger.Sync())

		assert.Contains(t, console.String(), "loading configuration")
		files, err := filepath.Glob(filepath.Join(dir, "*.log"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("bad level creates no log file", func(t *testing.T) {
		dir := t.TempDir()

		_, err := NewAtLevel(Options{Env: "test", Dir: dir}, "loud")
		require.Error(t, err)

		files, err := filepath.Glob(filepath.Join(dir, "*.log"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
