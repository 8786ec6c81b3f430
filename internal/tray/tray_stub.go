//go:build nogui || headless

package tray

import (
	"context"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

// Controller is the slice of the shell core the tray drives (stub version).
type Controller interface {
	Session() lifecycle.Session
	StartServer(ctx context.Context) (lifecycle.Session, error)
	StopServer(ctx context.Context) error
	RestartServer(ctx context.Context) (lifecycle.Session, error)
	Config() *config.Config
	ApplyConfig(ctx context.Context, cfg *config.Config) error
	OpenBrowser(ctx context.Context, url string) error
	SubscribeEvents() chan lifecycle.Event
	UnsubscribeEvents(ch chan lifecycle.Event)
}

// App represents the system tray application (stub version)
type App struct {
	logger *zap.SugaredLogger
}

// New creates a new tray application (stub version)
func New(_ Controller, logger *zap.SugaredLogger, _ string, _ func()) *App {
	return &App{logger: logger}
}

// Run starts the system tray application (stub version - does nothing)
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Tray functionality disabled (nogui/headless build)")
	<-ctx.Done()
	return ctx.Err()
}
