// Package socket provides the local control endpoint: a Unix domain socket
// on macOS and Linux, a named pipe on Windows. Connections over it are
// same-user by construction and carry socket-level trust on the control
// surface.
package socket

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EndpointEnvVar overrides the control endpoint for both the daemon and the
// CLI. Format: "unix:///path/to/control.sock" or "npipe:////./pipe/name".
const EndpointEnvVar = "OPEN_WEBUI_DESKTOP_SOCKET"

const socketFilename = "control.sock"

// DetectEndpoint resolves the control endpoint.
// Priority: environment override, then the platform default for dataDir.
func DetectEndpoint(dataDir string) string {
	if env := os.Getenv(EndpointEnvVar); env != "" {
		return env
	}
	return DefaultEndpoint(dataDir)
}

// DefaultEndpoint returns the default socket or pipe endpoint for dataDir.
func DefaultEndpoint(dataDir string) string {
	if dataDir == "" {
		dataDir = defaultDataDir()
	}

	if strings.HasPrefix(dataDir, "~/") {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if runtime.GOOS == "windows" {
		return windowsPipeEndpoint(dataDir)
	}

	return fmt.Sprintf("unix://%s", filepath.Join(dataDir, socketFilename))
}

// windowsPipeEndpoint returns a per-user pipe name, suffixed with a data
// directory hash when a custom directory is in use so two shells with
// different data dirs do not collide.
func windowsPipeEndpoint(dataDir string) string {
	username := os.Getenv("USERNAME")
	if username == "" {
		username = "default"
	}

	if dataDir == defaultDataDir() {
		return fmt.Sprintf("npipe:////./pipe/open-webui-desktop-%s", username)
	}

	hash := sha256.Sum256([]byte(dataDir))
	return fmt.Sprintf("npipe:////./pipe/open-webui-desktop-%s-%x", username, hash[:4])
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".open-webui-desktop")
}

// IsAvailable reports whether the endpoint looks reachable: the socket file
// exists on Unix, or the pipe answers a probe on Windows.
func IsAvailable(endpoint string) bool {
	if path, ok := strings.CutPrefix(endpoint, "unix://"); ok {
		_, err := os.Stat(path)
		return err == nil
	}
	if strings.HasPrefix(endpoint, "npipe://") {
		return isPipeAvailable(endpoint)
	}
	return false
}
