// Package contracts defines typed data transfer objects shared between the
// control bridge, the CLI client, and the UI surfaces.
package contracts

import (
	"time"
)

// APIResponse is the standard wrapper for all API responses
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// AppInfo describes the shell build and host platform
type AppInfo struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// ServerInfo is the live description of the supervised server session
type ServerInfo struct {
	URL       string     `json:"url,omitempty"`
	LANURL    string     `json:"lan_url,omitempty"`
	Status    string     `json:"status"`
	PID       int        `json:"pid,omitempty"`
	Reachable bool       `json:"reachable"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// RunRecord is one journaled server run
type RunRecord struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Status    string     `json:"status"`
	URL       string     `json:"url,omitempty"`
	PID       int        `json:"pid,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Event is a lifecycle event for SSE streaming
type Event struct {
	Type      string                 `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RuntimeStatus reports the managed python runtime
type RuntimeStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}

// PackageStatus reports the managed server package
type PackageStatus struct {
	Installed       bool   `json:"installed"`
	Version         string `json:"version,omitempty"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
}

// AppData describes where the shell keeps its state on disk
type AppData struct {
	DataDir    string `json:"data_dir"`
	LogDir     string `json:"log_dir,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`
	SocketPath string `json:"socket_path,omitempty"`
}

// VersionResponse carries a single version string
type VersionResponse struct {
	Version string `json:"version"`
}

// URLResponse carries the active session address
type URLResponse struct {
	URL string `json:"url,omitempty"`
}

// Request/response DTOs for control operations

// OpenBrowserRequest is the payload for open:browser
type OpenBrowserRequest struct {
	URL string `json:"url"`
}

// NotificationRequest is the payload for notification
type NotificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LogsResponse is the response for server log retrieval
type LogsResponse struct {
	Lines []string `json:"lines"`
	Count int      `json:"count"`
}

// RunsResponse is the response for journaled run listing
type RunsResponse struct {
	Runs  []RunRecord `json:"runs"`
	Count int         `json:"count"`
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// NewErrorResponse wraps an error message in a failure envelope
func NewErrorResponse(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}

// NewClassifiedErrorResponse wraps a classified error, carrying its kind as the code
func NewClassifiedErrorResponse(err error) APIResponse {
	resp := APIResponse{Success: false, Error: err.Error()}
	if kind := KindOf(err); kind != "" {
		resp.Code = string(kind)
	}
	return resp
}
