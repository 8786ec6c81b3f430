//go:build !nogui && !headless

// Package tray projects the supervised session onto the system tray. It keeps
// no state of its own: every menu update is recomputed from the controller's
// session snapshot and configuration.
package tray

import (
	"context"
	_ "embed"
	"fmt"
	"runtime"
	"strings"
	"time"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

//go:embed icon-mono-32.png
var iconData []byte

// refreshInterval is the fallback poll when no events arrive.
const refreshInterval = 10 * time.Second

// actionTimeout bounds start/stop/restart triggered from the menu. Start
// blocks through the reachability probe, so this must exceed its ceiling.
const actionTimeout = 3 * time.Minute

// Controller is the slice of the shell core the tray drives.
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

// App represents the system tray application
type App struct {
	controller Controller
	logger     *zap.SugaredLogger
	version    string
	shutdown   func()

	// Menu items for dynamic updates
	statusItem     *systray.MenuItem
	openItem       *systray.MenuItem
	startStopItem  *systray.MenuItem
	restartItem    *systray.MenuItem
	lanItem        *systray.MenuItem
	autoUpdateItem *systray.MenuItem

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new tray application
func New(controller Controller, logger *zap.SugaredLogger, version string, shutdown func()) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		controller: controller,
		logger:     logger,
		version:    version,
		shutdown:   shutdown,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the system tray application. It blocks until ctx is canceled or
// the user quits from the menu.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting system tray application")

	// Real-time updates from the orchestrator bus
	go func() {
		events := a.controller.SubscribeEvents()
		defer a.controller.UnsubscribeEvents(events)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
				a.refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fallback poll in case an event is dropped
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		a.logger.Info("Context cancelled, quitting systray")
		a.cancel()
		systray.Quit()
	}()

	// Blocking call that must run on the main thread
	systray.Run(a.onReady, a.onExit)

	return ctx.Err()
}

func (a *App) onReady() {
	a.logger.Info("System tray ready")

	if len(iconData) > 0 {
		systray.SetIcon(iconData)
		if runtime.GOOS == "darwin" {
			systray.SetTemplateIcon(iconData, iconData)
		}
	} else {
		a.logger.Error("Icon data is empty - icon not embedded correctly")
	}

	cfg := a.controller.Config()

	a.statusItem = systray.AddMenuItem(statusTitle(a.controller.Session()), "Server status")
	a.statusItem.Disable()

	systray.AddSeparator()

	a.openItem = systray.AddMenuItem("Open Open WebUI", "Open the web interface in your browser")
	a.startStopItem = systray.AddMenuItem("Start Server", "Start or stop the managed server")
	a.restartItem = systray.AddMenuItem("Restart Server", "Restart the managed server")

	systray.AddSeparator()

	a.lanItem = systray.AddMenuItemCheckbox("Serve on Local Network", "Expose the server on the local network after the next start", cfg.ServeOnLocalNetwork)
	a.autoUpdateItem = systray.AddMenuItemCheckbox("Update on Start", "Upgrade the server package before each start", cfg.AutoUpdate)

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit", "Quit Open WebUI Desktop")

	go func() {
		for {
			select {
			case <-a.openItem.ClickedCh:
				go a.handleOpen()
			case <-a.startStopItem.ClickedCh:
				go a.handleStartStop()
			case <-a.restartItem.ClickedCh:
				go a.handleRestart()
			case <-a.lanItem.ClickedCh:
				go a.handleToggleLAN()
			case <-a.autoUpdateItem.ClickedCh:
				go a.handleToggleAutoUpdate()
			case <-mQuit.ClickedCh:
				a.logger.Info("Quit selected from tray menu")
				if a.shutdown != nil {
					a.shutdown()
				}
				systray.Quit()
				return
			case <-a.ctx.Done():
				return
			}
		}
	}()

	a.refresh()
}

func (a *App) onExit() {
	a.logger.Info("System tray exited")
}

// refresh recomputes every menu item from the current session and config.
func (a *App) refresh() {
	if a.statusItem == nil {
		return
	}

	sess := a.controller.Session()

	a.statusItem.SetTitle(statusTitle(sess))
	a.startStopItem.SetTitle(startStopTitle(sess))

	if sess.Status == lifecycle.StatusStarted {
		a.openItem.Enable()
	} else {
		a.openItem.Disable()
	}

	if sess.Live() {
		a.restartItem.Enable()
	} else {
		a.restartItem.Disable()
	}

	if a.lanItem != nil {
		syncCheckbox(a.lanItem, a.controller.Config().ServeOnLocalNetwork)
	}
	if a.autoUpdateItem != nil {
		syncCheckbox(a.autoUpdateItem, a.controller.Config().AutoUpdate)
	}

	systray.SetTooltip(tooltipText(sess))
}

func (a *App) handleOpen() {
	sess := a.controller.Session()
	if sess.URL == "" {
		a.logger.Warn("Open requested but server has no address")
		return
	}

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	if err := a.controller.OpenBrowser(ctx, sess.URL); err != nil {
		a.logger.Errorw("Failed to open browser", "url", sess.URL, "error", err)
	}
}

func (a *App) handleStartStop() {
	ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
	defer cancel()

	if a.controller.Session().Live() {
		a.logger.Info("Stop requested from tray menu")
		if err := a.controller.StopServer(ctx); err != nil {
			a.logger.Errorw("Failed to stop server", "error", err)
		}
	} else {
		a.logger.Info("Start requested from tray menu")
		if _, err := a.controller.StartServer(ctx); err != nil {
			a.logger.Errorw("Failed to start server", "error", err)
		}
	}
	a.refresh()
}

func (a *App) handleRestart() {
	ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
	defer cancel()

	a.logger.Info("Restart requested from tray menu")
	if _, err := a.controller.RestartServer(ctx); err != nil {
		a.logger.Errorw("Failed to restart server", "error", err)
	}
	a.refresh()
}

func (a *App) handleToggleLAN() {
	cfg := a.controller.Config()
	cfg.ServeOnLocalNetwork = !cfg.ServeOnLocalNetwork
	a.applyConfig(cfg, "serve_on_local_network", cfg.ServeOnLocalNetwork)
}

func (a *App) handleToggleAutoUpdate() {
	cfg := a.controller.Config()
	cfg.AutoUpdate = !cfg.AutoUpdate
	a.applyConfig(cfg, "auto_update", cfg.AutoUpdate)
}

func (a *App) applyConfig(cfg *config.Config, field string, value bool) {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	if err := a.controller.ApplyConfig(ctx, cfg); err != nil {
		a.logger.Errorw("Failed to update configuration", "field", field, "error", err)
	} else {
		a.logger.Infow("Configuration updated from tray menu", "field", field, "value", value)
	}
	a.refresh()
}

func syncCheckbox(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// statusTitle renders the session state for the disabled status line.
func statusTitle(sess lifecycle.Session) string {
	switch sess.Status {
	case lifecycle.StatusStarting:
		return "Status: Starting..."
	case lifecycle.StatusStarted:
		return "Status: Running"
	case lifecycle.StatusFailed:
		return "Status: Failed"
	default:
		return "Status: Stopped"
	}
}

// startStopTitle picks the action label for the main control item.
func startStopTitle(sess lifecycle.Session) string {
	if sess.Live() {
		return "Stop Server"
	}
	return "Start Server"
}

// tooltipText builds the hover text shown on the tray icon.
func tooltipText(sess lifecycle.Session) string {
	var tooltip strings.Builder
	tooltip.WriteString("Open WebUI Desktop")

	switch sess.Status {
	case lifecycle.StatusStarted:
		tooltip.WriteString(" - Running")
		if sess.URL != "" {
			tooltip.WriteString(fmt.Sprintf("\nURL: %s", sess.URL))
		}
		if sess.LANURL != "" {
			tooltip.WriteString(fmt.Sprintf("\nLAN: %s", sess.LANURL))
		}
	case lifecycle.StatusStarting:
		tooltip.WriteString(" - Starting")
	case lifecycle.StatusFailed:
		tooltip.WriteString(" - Failed")
		if sess.LastError != "" {
			tooltip.WriteString(fmt.Sprintf("\n%s", sess.LastError))
		}
	default:
		tooltip.WriteString(" - Stopped")
	}

	return tooltip.String()
}
