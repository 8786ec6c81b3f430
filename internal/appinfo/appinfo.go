// Package appinfo exposes build and platform identity for the shell.
package appinfo

import (
	"fmt"
	"runtime"
)

// Injected by -ldflags during release builds.
var (
	Version = "v0.1.0-dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info describes the running shell build.
type Info struct {
	Version  string
	Commit   string
	Date     string
	Platform string
	Arch     string
}

// Get returns the build identity with the host platform filled in.
func Get() Info {
	return Info{
		Version:  Version,
		Commit:   Commit,
		Date:     Date,
		Platform: runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// UserAgent is the HTTP user agent used for outbound requests such as
// runtime archive downloads.
func UserAgent() string {
	return fmt.Sprintf("open-webui-desktop/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
