package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/supervisor"
)

// Plan resolves the launch spec for one server run. When auto-update is
// enabled the package is refreshed first; refresh failures are logged and do
// not block the start. A missing runtime or package fails with LaunchError.
func (m *Manager) Plan(ctx context.Context, cfg *config.Config, port int) (supervisor.Spec, error) {
	if len(cfg.ServerCommand) > 0 {
		return m.planCustomCommand(cfg, port), nil
	}

	if !m.IsRuntimeInstalled(ctx) {
		return supervisor.Spec{}, contracts.LaunchError("python runtime is not installed", nil)
	}
	if !m.IsPackageInstalled(ctx) {
		return supervisor.Spec{}, contracts.LaunchError(fmt.Sprintf("%s package is not installed", m.pkg), nil)
	}

	if cfg.AutoUpdate {
		m.refreshPackage(ctx)
	}

	host := "127.0.0.1"
	if cfg.ServeOnLocalNetwork {
		host = "0.0.0.0"
	}

	return supervisor.Spec{
		Binary:     m.venvBin(m.pkg),
		Args:       []string{"serve", "--host", host, "--port", strconv.Itoa(port)},
		Env:        m.serverEnv(ctx),
		WorkingDir: m.dataDir,
		Port:       port,
		URL:        fmt.Sprintf("http://127.0.0.1:%d", port),
	}, nil
}

// planCustomCommand honors a user-supplied server command, appending the
// resolved host and port.
func (m *Manager) planCustomCommand(cfg *config.Config, port int) supervisor.Spec {
	host := "127.0.0.1"
	if cfg.ServeOnLocalNetwork {
		host = "0.0.0.0"
	}

	args := append([]string{}, cfg.ServerCommand[1:]...)
	args = append(args, "--host", host, "--port", strconv.Itoa(port))

	return supervisor.Spec{
		Binary:     cfg.ServerCommand[0],
		Args:       args,
		Env:        m.serverEnv(context.Background()),
		WorkingDir: m.dataDir,
		Port:       port,
		URL:        fmt.Sprintf("http://127.0.0.1:%d", port),
	}
}

// refreshPackage upgrades the package when the index has a newer release.
func (m *Manager) refreshPackage(ctx context.Context) {
	update, err := m.CheckPackageUpdate(ctx)
	if err != nil {
		m.logger.Warn("Package update check failed", zap.Error(err))
		return
	}
	if !update.UpdateAvailable {
		m.logger.Debug("Server package is up to date", zap.String("version", update.Installed))
		return
	}

	m.logger.Info("Upgrading server package",
		zap.String("installed", update.Installed),
		zap.String("latest", update.Latest))
	if err := m.UpgradePackage(ctx); err != nil {
		m.logger.Warn("Package upgrade failed, starting with installed version", zap.Error(err))
	}
}

// serverEnv builds the child process environment: the virtual environment is
// activated, the server keeps its state under the shell's data directory,
// and the session secret is injected when available.
func (m *Manager) serverEnv(ctx context.Context) []string {
	env := append(os.Environ(),
		"VIRTUAL_ENV="+m.envDir(),
		"DATA_DIR="+m.serverDataDir(),
		"PATH="+venvPathPrefix(m.envDir())+string(os.PathListSeparator)+os.Getenv("PATH"),
	)

	if m.secrets != nil {
		secret, err := m.secrets.ServerSecret(ctx)
		if err != nil {
			m.logger.Warn("Session secret unavailable, server will generate its own", zap.Error(err))
		} else if secret != "" {
			env = append(env, "WEBUI_SECRET_KEY="+secret)
		}
	}
	return env
}

func venvPathPrefix(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts")
	}
	return filepath.Join(envDir, "bin")
}
