package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	keyring.MockInit()
	t.Setenv("WEBUI_SECRET_KEY", "")

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Listen = "127.0.0.1:0"
	cfg.GatewayListen = "127.0.0.1:0"
	cfg.StartOnLaunch = false
	cfg.Logging.LogDir = t.TempDir()
	cfg.Logging.EnableFile = false
	cfg.Logging.EnableConsole = false
	if mutate != nil {
		mutate(cfg)
	}

	a, err := New(cfg, "1.2.3", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Shutdown(context.Background())
	})
	return a
}

func TestNewAssemblesShell(t *testing.T) {
	a := newTestApp(t, nil)

	info := a.AppInfo()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.GOOS, info.Platform)
	assert.Equal(t, runtime.GOARCH, info.Arch)

	data := a.AppData()
	assert.Equal(t, a.orch.Config().DataDir, data.DataDir)
	assert.Equal(t, config.GetConfigPath(data.DataDir), data.ConfigPath)
	assert.NotEmpty(t, data.SocketPath)

	assert.Equal(t, lifecycle.StatusStopped, a.Session().Status)

	runs, err := a.RecentRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	pkg, err := a.PackageStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, pkg.Installed)
}

func TestServerLogsEmptyBeforeFirstRun(t *testing.T) {
	a := newTestApp(t, nil)

	lines, err := a.ServerLogs(20)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestApplyConfigPersistsToDisk(t *testing.T) {
	a := newTestApp(t, nil)
	a.orch.Start()

	port := 9090
	updated := a.Config()
	updated.Port = &port
	updated.AutoUpdate = false

	require.NoError(t, a.ApplyConfig(context.Background(), updated))

	applied := a.Config()
	require.NotNil(t, applied.Port)
	assert.Equal(t, 9090, *applied.Port)
	assert.False(t, applied.AutoUpdate)

	loaded, err := config.LoadFromFile(a.configPath)
	require.NoError(t, err)
	require.NotNil(t, loaded.Port)
	assert.Equal(t, 9090, *loaded.Port)
	assert.False(t, loaded.AutoUpdate)
}

func TestRecentRunsConversion(t *testing.T) {
	a := newTestApp(t, nil)

	exitCode := 3
	started := time.Now().Add(-2 * time.Minute)
	closedID, err := a.journal.BeginRun("http://127.0.0.1:8080", 101, started)
	require.NoError(t, err)
	require.NoError(t, a.journal.EndRun(closedID, "failed", &exitCode, "exit status 3"))

	_, err = a.journal.BeginRun("http://127.0.0.1:8080", 102, time.Now())
	require.NoError(t, err)

	runs, err := a.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	open := runs[0]
	assert.Equal(t, "running", open.Status)
	assert.Equal(t, 102, open.PID)
	assert.Nil(t, open.EndedAt)
	assert.Nil(t, open.ExitCode)

	closed := runs[1]
	assert.Equal(t, closedID, closed.ID)
	assert.Equal(t, "failed", closed.Status)
	assert.Equal(t, "exit status 3", closed.Error)
	require.NotNil(t, closed.EndedAt)
	assert.False(t, closed.EndedAt.IsZero())
	require.NotNil(t, closed.ExitCode)
	assert.Equal(t, 3, *closed.ExitCode)
}

func TestDataResetterClearsServerState(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	dataDir := a.orch.Config().DataDir
	serverData := filepath.Join(dataDir, "webui")
	require.NoError(t, os.MkdirAll(serverData, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(serverData, "webui.db"), []byte("state"), 0o600))

	original, err := a.secrets.ServerSecret(ctx)
	require.NoError(t, err)

	resetter := &dataResetter{installer: a.installer, secrets: a.secrets}
	require.NoError(t, resetter.Reset(ctx))

	_, err = os.Stat(serverData)
	assert.True(t, os.IsNotExist(err), "server data dir should be removed")

	fresh, err := a.secrets.ServerSecret(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, original, fresh, "reset must rotate the session secret")
}

func TestPackageUpdateCheckIsRateLimited(t *testing.T) {
	uvPath := filepath.Join(t.TempDir(), "uv")
	require.NoError(t, os.WriteFile(uvPath, []byte("#!/bin/sh\n"), 0o755))

	a := newTestApp(t, func(cfg *config.Config) {
		cfg.UVPath = uvPath
	})

	a.installer.SetRunFunc(func(_ context.Context, _ string, _ []string, _ string, _ ...string) ([]byte, error) {
		return []byte("Name: open-webui\nVersion: 0.5.0\n"), nil
	})
	calls := 0
	a.installer.SetPyPIFunc(func(_ context.Context, _ string) (string, error) {
		calls++
		return "0.6.0", nil
	})

	ctx := context.Background()
	first := a.packageUpdate(ctx)
	require.NotNil(t, first)
	assert.Equal(t, "0.6.0", first.Latest)
	assert.True(t, first.UpdateAvailable)

	second := a.packageUpdate(ctx)
	require.NotNil(t, second)
	assert.Equal(t, 1, calls, "second query within the interval must hit the cache")
}

func TestOpenBrowserRejectsNonHTTPSchemes(t *testing.T) {
	launched := 0
	a := &App{
		logger: zap.NewNop(),
		openFn: func(_ string, _ ...string) error {
			launched++
			return nil
		},
	}

	for _, raw := range []string{
		"file:///etc/passwd",
		"javascript:alert(1)",
		"ftp://example.com",
		"chrome://settings",
	} {
		err := a.OpenBrowser(context.Background(), raw)
		assert.Error(t, err, "scheme of %q must be refused", raw)
	}
	assert.Zero(t, launched, "no command may run for a refused URL")
}

func TestOpenBrowserLaunchesCommand(t *testing.T) {
	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath("xdg-open"); err != nil {
			t.Skip("xdg-open not available")
		}
	}

	var gotName string
	var gotArgs []string
	a := &App{
		logger: zap.NewNop(),
		openFn: func(name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		},
	}

	require.NoError(t, a.OpenBrowser(context.Background(), "http://127.0.0.1:8080"))
	assert.NotEmpty(t, gotName)
	assert.Contains(t, gotArgs, "http://127.0.0.1:8080")
}

func TestControlBaseURL(t *testing.T) {
	cases := []struct {
		listen string
		want   string
	}{
		{":8790", "http://127.0.0.1:8790"},
		{"0.0.0.0:8790", "http://127.0.0.1:8790"},
		{"127.0.0.1:8790", "http://127.0.0.1:8790"},
		{"localhost:9000", "http://localhost:9000"},
		{"badaddr", "http://badaddr"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, controlBaseURL(tc.listen), "listen %q", tc.listen)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	a := newTestApp(t, nil)
	a.orch.Start()

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
}
