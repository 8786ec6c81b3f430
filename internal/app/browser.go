package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// OpenBrowser opens rawURL in the default browser. Only http and https URLs
// are accepted; anything else is rejected before a command ever runs.
func (a *App) OpenBrowser(_ context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("refusing to open %q scheme", parsed.Scheme)
	}

	var name string
	var args []string
	switch runtime.GOOS {
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", rawURL}
	case "darwin":
		name = "open"
		args = []string{rawURL}
	case "linux":
		if !hasGUIEnvironment() {
			a.logger.Warn("No GUI session detected, attempting to launch browser anyway",
				zap.String("url", rawURL))
		}
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("xdg-open not found in PATH: %w", err)
		}
		name = "xdg-open"
		args = []string{rawURL}
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	a.logger.Info("Opening browser", zap.String("url", rawURL))
	if err := a.openFn(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// hasGUIEnvironment checks for session variables that indicate a Linux
// desktop is present.
func hasGUIEnvironment() bool {
	for _, envVar := range []string{"DISPLAY", "WAYLAND_DISPLAY", "XDG_SESSION_TYPE"} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}
