package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
)

func TestGetLogFilePathWithDir(t *testing.T) {
	dir := t.TempDir()

	path, err := GetLogFilePathWithDir(dir, "main.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.log"), path)

	// Directory must exist afterwards
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetLogFilePathWithDirTildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := GetLogFilePathWithDir("~/.open-webui-desktop-test-logs", "main.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".open-webui-desktop-test-logs", "main.log"), path)

	t.Cleanup(func() {
		os.RemoveAll(filepath.Join(home, ".open-webui-desktop-test-logs"))
	})
}

func TestGetLogDirReturnsPath(t *testing.T) {
	dir, err := GetLogDir()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir))
}

func testLogConfig(dir string) *config.LogConfig {
	return &config.LogConfig{
		Level:      LogLevelInfo,
		LogDir:     dir,
		Filename:   "main.log",
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}
}

func TestReadServerLogTailMissingFile(t *testing.T) {
	lines, err := ReadServerLogTail(testLogConfig(t.TempDir()), 50)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReadServerLogTail(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)

	var content string
	for i := 1; i <= 100; i++ {
		content += fmt.Sprintf("line %d\n", i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServerLogFilename), []byte(content), 0644))

	lines, err := ReadServerLogTail(cfg, 10)
	require.NoError(t, err)
	require.Len(t, lines, 10)
	assert.Equal(t, "line 91", lines[0])
	assert.Equal(t, "line 100", lines[9])

	// More lines requested than present returns all of them
	all, err := ReadServerLogTail(cfg, 500)
	require.NoError(t, err)
	assert.Len(t, all, 100)

	// Zero defaults to 50
	def, err := ReadServerLogTail(cfg, 0)
	require.NoError(t, err)
	assert.Len(t, def, 50)
}

func TestServerLogWriter(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)

	w, err := ServerLogWriter(cfg)
	require.NoError(t, err)

	_, err = w.Write([]byte("INFO: Uvicorn running on http://127.0.0.1:8080\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines, err := ReadServerLogTail(cfg, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Uvicorn running")
}

func TestSetupLoggerLevels(t *testing.T) {
	for _, level := range []string{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "unknown"} {
		cfg := testLogConfig(t.TempDir())
		cfg.Level = level
		cfg.EnableConsole = true

		logger, err := SetupLogger(cfg)
		require.NoError(t, err, "level %s", level)
		require.NotNil(t, logger)
	}
}

func TestSetupLoggerNoOutputs(t *testing.T) {
	cfg := testLogConfig(t.TempDir())
	cfg.EnableConsole = false
	cfg.EnableFile = false

	_, err := SetupLogger(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log outputs")
}

func TestSetupLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)
	cfg.EnableConsole = false
	cfg.EnableFile = true

	logger, err := SetupLogger(cfg)
	require.NoError(t, err)

	logger.Info("hello from the shell")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the shell")
}
