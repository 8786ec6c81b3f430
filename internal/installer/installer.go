package installer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

// SecretProvider supplies the session secret injected into the server
// process environment.
type SecretProvider interface {
	ServerSecret(ctx context.Context) (string, error)
}

// runFunc executes a command and returns its combined output. It exists so
// tests can intercept tool invocations.
type runFunc func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

// Manager detects and installs the python runtime (uv plus a managed
// interpreter) and the server package, and resolves the launch command for
// each run. Install operations are serialized; concurrent callers wait.
type Manager struct {
	logger  *zap.Logger
	dataDir string
	pkg     string
	pin     string
	uvPath  string
	secrets SecretProvider

	httpClient *http.Client

	mu  sync.Mutex
	run runFunc

	releaseFunc func(ctx context.Context) (*Release, error)
	pypiFunc    func(ctx context.Context, pkg string) (string, error)
}

// New creates an installer manager for the given configuration.
func New(cfg *config.Config, secrets SecretProvider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:     logger,
		dataDir:    cfg.DataDir,
		pkg:        cfg.PackageName,
		pin:        cfg.PackagePin,
		uvPath:     cfg.UVPath,
		secrets:    secrets,
		httpClient: &http.Client{Transport: transport.NewLoggingTransport(nil, logger)},
		run:        runCommand,
	}
	m.releaseFunc = func(ctx context.Context) (*Release, error) {
		return fetchLatestRelease(ctx, m.httpClient, uvRepo)
	}
	m.pypiFunc = func(ctx context.Context, pkg string) (string, error) {
		return fetchPyPIVersion(ctx, m.httpClient, pkg)
	}
	return m
}

// SetRunFunc replaces the command runner. Primarily for testing.
func (m *Manager) SetRunFunc(fn runFunc) {
	m.run = fn
}

// SetReleaseFunc replaces the GitHub release lookup. Primarily for testing.
func (m *Manager) SetReleaseFunc(fn func(ctx context.Context) (*Release, error)) {
	m.releaseFunc = fn
}

// SetPyPIFunc replaces the package index lookup. Primarily for testing.
func (m *Manager) SetPyPIFunc(fn func(ctx context.Context, pkg string) (string, error)) {
	m.pypiFunc = fn
}

func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	return cmd.CombinedOutput()
}

// binDir is where the managed uv binary lives.
func (m *Manager) binDir() string {
	return filepath.Join(m.dataDir, "bin")
}

// envDir is the virtual environment holding the server package.
func (m *Manager) envDir() string {
	return filepath.Join(m.dataDir, "env")
}

// serverDataDir is the directory handed to the server for its own state.
func (m *Manager) serverDataDir() string {
	return filepath.Join(m.dataDir, "webui")
}

func (m *Manager) venvBin(name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(m.envDir(), "Scripts", name+".exe")
	}
	return filepath.Join(m.envDir(), "bin", name)
}

// uvBinary resolves the uv executable: an explicit configured path wins, then
// the managed copy under the data directory, then PATH.
func (m *Manager) uvBinary() (string, error) {
	if m.uvPath != "" {
		if _, err := os.Stat(m.uvPath); err != nil {
			return "", fmt.Errorf("configured uv path %s: %w", m.uvPath, err)
		}
		return m.uvPath, nil
	}

	managed := filepath.Join(m.binDir(), uvExecName())
	if _, err := os.Stat(managed); err == nil {
		return managed, nil
	}

	path, err := exec.LookPath("uv")
	if err != nil {
		return "", fmt.Errorf("uv executable not found: %w", err)
	}
	return path, nil
}

func uvExecName() string {
	if runtime.GOOS == "windows" {
		return "uv.exe"
	}
	return "uv"
}

// IsRuntimeInstalled reports whether the python runtime is ready to launch
// the server.
func (m *Manager) IsRuntimeInstalled(ctx context.Context) bool {
	_, err := m.RuntimeVersion(ctx)
	return err == nil
}

// RuntimeVersion returns the uv version string, e.g. "uv 0.5.11".
func (m *Manager) RuntimeVersion(ctx context.Context) (string, error) {
	uv, err := m.uvBinary()
	if err != nil {
		return "", err
	}
	out, err := m.run(ctx, m.dataDir, nil, uv, "--version")
	if err != nil {
		return "", fmt.Errorf("uv --version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsPackageInstalled reports whether the server package entrypoint exists in
// the managed environment.
func (m *Manager) IsPackageInstalled(_ context.Context) bool {
	_, err := os.Stat(m.venvBin(m.pkg))
	return err == nil
}

// PackageVersion returns the installed server package version.
func (m *Manager) PackageVersion(ctx context.Context) (string, error) {
	uv, err := m.uvBinary()
	if err != nil {
		return "", err
	}
	out, err := m.run(ctx, m.dataDir, m.uvEnv(), uv, "pip", "show", m.pkg)
	if err != nil {
		return "", fmt.Errorf("uv pip show %s: %w", m.pkg, err)
	}
	version := parsePipShowVersion(string(out))
	if version == "" {
		return "", fmt.Errorf("package %s is not installed", m.pkg)
	}
	return version, nil
}

// parsePipShowVersion extracts the Version field from pip show output.
func parsePipShowVersion(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// InstallPackage creates the virtual environment if needed and installs the
// configured server package into it.
func (m *Manager) InstallPackage(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installPackageLocked(ctx, false)
}

// UpgradePackage upgrades the server package to the latest release.
func (m *Manager) UpgradePackage(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installPackageLocked(ctx, true)
}

func (m *Manager) installPackageLocked(ctx context.Context, upgrade bool) error {
	uv, err := m.uvBinary()
	if err != nil {
		return fmt.Errorf("python runtime is not installed: %w", err)
	}

	if _, err := os.Stat(m.envDir()); err != nil {
		m.logger.Info("Creating virtual environment", zap.String("path", m.envDir()))
		if out, err := m.run(ctx, m.dataDir, nil, uv, "venv", m.envDir()); err != nil {
			return fmt.Errorf("uv venv: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}

	target := m.pkg
	if m.pin != "" && !upgrade {
		target = fmt.Sprintf("%s==%s", m.pkg, m.pin)
	}

	args := []string{"pip", "install"}
	if upgrade {
		args = append(args, "--upgrade")
	}
	args = append(args, target)

	m.logger.Info("Installing server package",
		zap.String("package", target),
		zap.Bool("upgrade", upgrade))
	if out, err := m.run(ctx, m.dataDir, m.uvEnv(), uv, args...); err != nil {
		return fmt.Errorf("uv pip install %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ResetServerData removes the directory the server keeps its own state in.
// The managed runtime and virtual environment survive a reset so the next
// start does not trigger a reinstall.
func (m *Manager) ResetServerData(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.serverDataDir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove server data %s: %w", dir, err)
	}
	m.logger.Info("Server data cleared", zap.String("path", dir))
	return nil
}

// uvEnv is the environment for uv pip operations, pointing uv at the managed
// virtual environment.
func (m *Manager) uvEnv() []string {
	return append(os.Environ(), "VIRTUAL_ENV="+m.envDir())
}
