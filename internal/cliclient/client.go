// Package cliclient provides HTTP API access for CLI commands. It talks to a
// running shell daemon over the control socket when one is available, falling
// back to plain TCP against the bridge listen address.
package cliclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/socket"
)

// Client provides HTTP API access for CLI commands.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a new CLI HTTP client. If endpoint is a socket or pipe
// endpoint, the client dials it directly; otherwise endpoint is treated as a
// base URL and requests go over TCP.
func NewClient(endpoint string, logger *zap.SugaredLogger) *Client {
	transport := &http.Transport{}

	dialer, baseURL, err := socket.CreateDialer(endpoint)
	if err != nil && logger != nil {
		logger.Warnw("Failed to create socket dialer, using TCP",
			"endpoint", endpoint,
			"error", err)
		baseURL = endpoint
	}

	if dialer != nil {
		transport.DialContext = dialer
		if logger != nil {
			logger.Debugw("Using socket/pipe connection",
				"endpoint", endpoint,
				"base_url", baseURL)
		}
	} else if baseURL == "" {
		baseURL = endpoint
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   5 * time.Minute, // installs can run for minutes
			Transport: transport,
		},
		logger: logger,
	}
}

// SetToken attaches a surface token to every request. Needed for TCP
// connections; socket connections are trusted by peer credentials.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the resolved base URL for this client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope mirrors contracts.APIResponse with the data left raw so each
// method can decode it into its own type.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// call performs one API request. in is marshaled as the JSON body when
// non-nil; out receives the decoded data field when non-nil.
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", appinfo.UserAgent())
	if c.token != "" {
		req.Header.Set("X-Bridge-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !env.Success {
		return &APIError{
			Status:        resp.StatusCode,
			Code:          env.Code,
			Message:       env.Error,
			CorrelationID: resp.Header.Get("X-Correlation-ID"),
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data for %s: %w", path, err)
		}
	}
	return nil
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return nil
}

// AppInfo fetches the shell build description.
func (c *Client) AppInfo(ctx context.Context) (contracts.AppInfo, error) {
	var info contracts.AppInfo
	err := c.call(ctx, http.MethodGet, "/api/v1/app/info", nil, &info)
	return info, err
}

// AppData fetches the shell's on-disk layout.
func (c *Client) AppData(ctx context.Context) (contracts.AppData, error) {
	var data contracts.AppData
	err := c.call(ctx, http.MethodGet, "/api/v1/app/data", nil, &data)
	return data, err
}

// Version fetches the daemon version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v contracts.VersionResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/version", nil, &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// GetConfig fetches the live daemon configuration.
func (c *Client) GetConfig(ctx context.Context) (*config.Config, error) {
	var cfg config.Config
	if err := c.call(ctx, http.MethodGet, "/api/v1/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetConfig applies a partial configuration update and returns the merged
// result. patch can be a map or any struct with config JSON tags.
func (c *Client) SetConfig(ctx context.Context, patch interface{}) (*config.Config, error) {
	var cfg config.Config
	if err := c.call(ctx, http.MethodPut, "/api/v1/config", patch, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ServerInfo fetches the full session description.
func (c *Client) ServerInfo(ctx context.Context) (contracts.ServerInfo, error) {
	var info contracts.ServerInfo
	err := c.call(ctx, http.MethodGet, "/api/v1/server", nil, &info)
	return info, err
}

// ServerStatus fetches just the lifecycle state name.
func (c *Client) ServerStatus(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/server/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// ServerURL fetches the active session address, empty when stopped.
func (c *Client) ServerURL(ctx context.Context) (string, error) {
	var out contracts.URLResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/server/url", nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ServerLogs fetches the last lines of the managed server's log.
func (c *Client) ServerLogs(ctx context.Context, lines int) ([]string, error) {
	path := "/api/v1/server/logs"
	if lines > 0 {
		path += "?lines=" + url.QueryEscape(fmt.Sprintf("%d", lines))
	}
	var out contracts.LogsResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}

// RecentRuns fetches the journaled run history, newest first.
func (c *Client) RecentRuns(ctx context.Context, limit int) ([]contracts.RunRecord, error) {
	path := "/api/v1/server/runs"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}
	var out contracts.RunsResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// StartServer asks the daemon to start the managed server and returns the
// session once it is running.
func (c *Client) StartServer(ctx context.Context) (contracts.ServerInfo, error) {
	var info contracts.ServerInfo
	err := c.call(ctx, http.MethodPost, "/api/v1/server/start", nil, &info)
	return info, err
}

// StopServer asks the daemon to stop the managed server.
func (c *Client) StopServer(ctx context.Context) (contracts.ServerInfo, error) {
	var info contracts.ServerInfo
	err := c.call(ctx, http.MethodPost, "/api/v1/server/stop", nil, &info)
	return info, err
}

// RestartServer stops and starts the managed server as one operation.
func (c *Client) RestartServer(ctx context.Context) (contracts.ServerInfo, error) {
	var info contracts.ServerInfo
	err := c.call(ctx, http.MethodPost, "/api/v1/server/restart", nil, &info)
	return info, err
}

// ResetApp force-stops the server and clears all shell state.
func (c *Client) ResetApp(ctx context.Context) (contracts.ServerInfo, error) {
	var info contracts.ServerInfo
	err := c.call(ctx, http.MethodPost, "/api/v1/app/reset", nil, &info)
	return info, err
}

// InstallRuntime installs the managed Python runtime and reports its status.
func (c *Client) InstallRuntime(ctx context.Context) (contracts.RuntimeStatus, error) {
	var status contracts.RuntimeStatus
	err := c.call(ctx, http.MethodPost, "/api/v1/install/python", nil, &status)
	return status, err
}

// InstallPackage installs or upgrades the server package and reports its
// status.
func (c *Client) InstallPackage(ctx context.Context, upgrade bool) (contracts.PackageStatus, error) {
	body := map[string]interface{}{"upgrade": upgrade}
	var status contracts.PackageStatus
	err := c.call(ctx, http.MethodPost, "/api/v1/install/package", body, &status)
	return status, err
}

// RuntimeStatus reports the managed Python runtime without side effects.
func (c *Client) RuntimeStatus(ctx context.Context) (contracts.RuntimeStatus, error) {
	var status contracts.RuntimeStatus
	err := c.call(ctx, http.MethodGet, "/api/v1/status/python", nil, &status)
	return status, err
}

// PackageStatus reports the server package without side effects.
func (c *Client) PackageStatus(ctx context.Context) (contracts.PackageStatus, error) {
	var status contracts.PackageStatus
	err := c.call(ctx, http.MethodGet, "/api/v1/status/package", nil, &status)
	return status, err
}

// OpenBrowser asks the daemon to open rawURL in the host browser. An empty
// rawURL opens the running server's address.
func (c *Client) OpenBrowser(ctx context.Context, rawURL string) error {
	body := contracts.OpenBrowserRequest{URL: rawURL}
	return c.call(ctx, http.MethodPost, "/api/v1/browser/open", body, nil)
}

// Notify asks the daemon to show a desktop notification.
func (c *Client) Notify(ctx context.Context, title, message string) error {
	body := contracts.NotificationRequest{Title: title, Body: message}
	return c.call(ctx, http.MethodPost, "/api/v1/notifications", body, nil)
}
