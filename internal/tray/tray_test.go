//go:build !nogui && !headless

package tray

import (
	"strings"
	"testing"

	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

func TestStatusTitle(t *testing.T) {
	tests := []struct {
		status lifecycle.Status
		want   string
	}{
		{lifecycle.StatusStopped, "Status: Stopped"},
		{lifecycle.StatusStarting, "Status: Starting..."},
		{lifecycle.StatusStarted, "Status: Running"},
		{lifecycle.StatusFailed, "Status: Failed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := statusTitle(lifecycle.Session{Status: tt.status})
			if got != tt.want {
				t.Errorf("statusTitle(%s) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestStartStopTitle(t *testing.T) {
	if got := startStopTitle(lifecycle.Session{Status: lifecycle.StatusStarted}); got != "Stop Server" {
		t.Errorf("running session should offer stop, got %q", got)
	}
	if got := startStopTitle(lifecycle.Session{Status: lifecycle.StatusStarting}); got != "Stop Server" {
		t.Errorf("starting session should offer stop, got %q", got)
	}
	if got := startStopTitle(lifecycle.Session{Status: lifecycle.StatusStopped}); got != "Start Server" {
		t.Errorf("stopped session should offer start, got %q", got)
	}
	if got := startStopTitle(lifecycle.Session{Status: lifecycle.StatusFailed}); got != "Start Server" {
		t.Errorf("failed session should offer start again, got %q", got)
	}
}

func TestTooltipText(t *testing.T) {
	running := tooltipText(lifecycle.Session{
		Status: lifecycle.StatusStarted,
		URL:    "http://127.0.0.1:8080",
		LANURL: "http://192.168.1.5:8080",
	})
	if !strings.Contains(running, "Running") {
		t.Errorf("tooltip missing state: %q", running)
	}
	if !strings.Contains(running, "http://127.0.0.1:8080") {
		t.Errorf("tooltip missing URL: %q", running)
	}
	if !strings.Contains(running, "LAN: http://192.168.1.5:8080") {
		t.Errorf("tooltip missing LAN URL: %q", running)
	}

	failed := tooltipText(lifecycle.Session{
		Status:    lifecycle.StatusFailed,
		LastError: "exit status 1",
	})
	if !strings.Contains(failed, "Failed") || !strings.Contains(failed, "exit status 1") {
		t.Errorf("tooltip missing failure detail: %q", failed)
	}

	stopped := tooltipText(lifecycle.Session{Status: lifecycle.StatusStopped})
	if !strings.Contains(stopped, "Stopped") {
		t.Errorf("tooltip missing stopped state: %q", stopped)
	}
}

func TestIconEmbedded(t *testing.T) {
	if len(iconData) == 0 {
		t.Fatal("icon data not embedded")
	}
	// PNG signature
	if len(iconData) < 8 || iconData[0] != 0x89 || string(iconData[1:4]) != "PNG" {
		t.Errorf("icon is not a PNG: first bytes %v", iconData[:8])
	}
}
