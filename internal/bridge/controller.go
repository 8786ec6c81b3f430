// Package bridge exposes the desktop control surface over HTTP: a typed
// operation catalogue dispatched through the origin gate, REST aliases for
// UI surfaces, and an SSE event stream mirroring the orchestrator bus.
package bridge

import (
	"context"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

// Controller defines what the bridge needs from the shell core. The app
// assembly implements it; tests substitute fakes.
type Controller interface {
	// Identity and paths
	AppInfo() contracts.AppInfo
	AppData() contracts.AppData

	// Configuration
	Config() *config.Config
	ApplyConfig(ctx context.Context, cfg *config.Config) error

	// Server lifecycle
	Session() lifecycle.Session
	StartServer(ctx context.Context) (lifecycle.Session, error)
	StopServer(ctx context.Context) error
	RestartServer(ctx context.Context) (lifecycle.Session, error)
	ResetApp(ctx context.Context) error

	// Diagnostics
	ServerLogs(lines int) ([]string, error)
	RecentRuns(limit int) ([]contracts.RunRecord, error)

	// Managed runtime and package
	InstallRuntime(ctx context.Context) error
	InstallPackage(ctx context.Context, upgrade bool) error
	RuntimeStatus(ctx context.Context) (contracts.RuntimeStatus, error)
	PackageStatus(ctx context.Context) (contracts.PackageStatus, error)

	// Desktop integration
	OpenBrowser(ctx context.Context, url string) error
	Notify(title, body string) error

	// Event bus
	SubscribeEvents() chan lifecycle.Event
	UnsubscribeEvents(ch chan lifecycle.Event)
}
