package app

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/installer"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
	"github.com/andrejvysny/open-webui-desktop/internal/logs"
)

const defaultLogLines = 200

// AppInfo reports the shell build identity.
func (a *App) AppInfo() contracts.AppInfo {
	return contracts.AppInfo{
		Version:  a.version,
		Platform: runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// AppData reports where the shell keeps its state on disk.
func (a *App) AppData() contracts.AppData {
	return contracts.AppData{
		DataDir:    a.orch.Config().DataDir,
		LogDir:     a.logDir,
		ConfigPath: a.configPath,
		SocketPath: a.endpoint,
	}
}

// Config returns a snapshot of the active configuration.
func (a *App) Config() *config.Config {
	return a.orch.Config()
}

// ApplyConfig validates and applies cfg, then persists it so the change
// survives a shell restart.
func (a *App) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if err := a.orch.ApplyConfig(ctx, cfg); err != nil {
		return err
	}
	if err := config.SaveConfig(a.orch.Config(), a.configPath); err != nil {
		return contracts.ConfigError("failed to persist configuration", err)
	}
	return nil
}

// Session returns the current session snapshot.
func (a *App) Session() lifecycle.Session {
	return a.orch.Session()
}

// StartServer launches the server. The returned session stays starting until
// the prober confirms reachability.
func (a *App) StartServer(ctx context.Context) (lifecycle.Session, error) {
	return a.orch.StartServer(ctx)
}

// StopServer stops the server. Stopping an already stopped server is a no-op.
func (a *App) StopServer(ctx context.Context) error {
	return a.orch.StopServer(ctx)
}

// RestartServer stops then starts the server as one serialized operation.
func (a *App) RestartServer(ctx context.Context) (lifecycle.Session, error) {
	return a.orch.RestartServer(ctx)
}

// ResetApp force-stops the server and clears its persisted state.
func (a *App) ResetApp(ctx context.Context) error {
	return a.orch.Reset(ctx)
}

// ServerLogs returns recent server output. While a process is or was running
// this session the in-memory capture is served; otherwise the tail of the
// server log file covers output from before the shell restarted.
func (a *App) ServerLogs(lines int) ([]string, error) {
	if lines <= 0 {
		lines = defaultLogLines
	}
	if out := a.orch.Logs(lines); len(out) > 0 {
		return out, nil
	}
	return logs.ReadServerLogTail(a.logCfg, lines)
}

// RecentRuns returns the newest run records, newest first.
func (a *App) RecentRuns(limit int) ([]contracts.RunRecord, error) {
	records, err := a.journal.Recent(limit)
	if err != nil {
		return nil, err
	}
	out := make([]contracts.RunRecord, 0, len(records))
	for _, r := range records {
		rec := contracts.RunRecord{
			ID:        r.ID,
			StartedAt: r.StartedAt,
			Status:    r.Outcome,
			URL:       r.URL,
			PID:       r.PID,
			ExitCode:  r.ExitCode,
			Error:     r.Message,
		}
		if !r.EndedAt.IsZero() {
			ended := r.EndedAt
			rec.EndedAt = &ended
		}
		out = append(out, rec)
	}
	return out, nil
}

// InstallRuntime downloads and installs the managed Python runtime.
func (a *App) InstallRuntime(ctx context.Context) error {
	return a.installer.InstallRuntime(ctx)
}

// InstallPackage installs the server package, or upgrades it in place.
func (a *App) InstallPackage(ctx context.Context, upgrade bool) error {
	if upgrade {
		return a.installer.UpgradePackage(ctx)
	}
	return a.installer.InstallPackage(ctx)
}

// RuntimeStatus reports the managed runtime. A missing runtime is a state,
// not an error.
func (a *App) RuntimeStatus(ctx context.Context) (contracts.RuntimeStatus, error) {
	st := contracts.RuntimeStatus{}
	version, err := a.installer.RuntimeVersion(ctx)
	if err == nil {
		st.Installed = true
		st.Version = version
	}
	return st, nil
}

// PackageStatus reports the installed server package and, rate-limited,
// whether a newer release is available.
func (a *App) PackageStatus(ctx context.Context) (contracts.PackageStatus, error) {
	st := contracts.PackageStatus{}
	if !a.installer.IsPackageInstalled(ctx) {
		return st, nil
	}
	st.Installed = true
	if v, err := a.installer.PackageVersion(ctx); err == nil {
		st.Version = v
	}
	if upd := a.packageUpdate(ctx); upd != nil {
		st.Latest = upd.Latest
		st.UpdateAvailable = upd.UpdateAvailable
	}
	return st, nil
}

// packageUpdate serves the cached update check, refreshing it at most once
// per packageUpdateInterval. Status queries poll frequently; PyPI must not.
func (a *App) packageUpdate(ctx context.Context) *installer.PackageUpdate {
	a.pkgMu.Lock()
	defer a.pkgMu.Unlock()

	if time.Since(a.pkgChecked) < packageUpdateInterval {
		return a.pkgUpdate
	}
	a.pkgChecked = time.Now()

	upd, err := a.installer.CheckPackageUpdate(ctx)
	if err != nil {
		a.logger.Debug("Package update check failed", zap.Error(err))
		return a.pkgUpdate
	}
	a.pkgUpdate = upd
	return upd
}

// Notify raises a desktop notification.
func (a *App) Notify(title, body string) error {
	return a.notifier.Notify(title, body)
}

// SubscribeEvents registers a listener on the lifecycle event bus.
func (a *App) SubscribeEvents() chan lifecycle.Event {
	return a.orch.SubscribeEvents()
}

// UnsubscribeEvents removes a listener registered with SubscribeEvents.
func (a *App) UnsubscribeEvents(ch chan lifecycle.Event) {
	a.orch.UnsubscribeEvents(ch)
}
