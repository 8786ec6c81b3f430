package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
	"github.com/andrejvysny/open-webui-desktop/internal/observability"
	"github.com/andrejvysny/open-webui-desktop/internal/policy"
)

type fakeController struct {
	mu sync.Mutex

	session lifecycle.Session
	cfg     *config.Config
	applied *config.Config

	startErr error
	stopErr  error
	applyErr error

	starts, stops, restarts, resets int
	runtimeInstalls                 int
	packageInstalls                 int
	packageUpgrades                 int

	logsReq       int
	logs          []string
	runs          []contracts.RunRecord
	runtime       contracts.RuntimeStatus
	pkg           contracts.PackageStatus
	opened        []string
	notifications []contracts.NotificationRequest

	subs map[chan lifecycle.Event]struct{}
}

func newFakeController() *fakeController {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/tmp/open-webui-desktop-test"
	return &fakeController{
		session: lifecycle.Session{Status: lifecycle.StatusStopped},
		cfg:     cfg,
		logs:    []string{"INFO:     Application startup complete.", "INFO:     Uvicorn running"},
		runtime: contracts.RuntimeStatus{Installed: true, Version: "3.11.9"},
		pkg:     contracts.PackageStatus{Installed: true, Version: "0.6.5"},
		subs:    make(map[chan lifecycle.Event]struct{}),
	}
}

func (f *fakeController) AppInfo() contracts.AppInfo {
	return contracts.AppInfo{Version: "v1.2.3", Platform: "linux", Arch: "amd64"}
}

func (f *fakeController) AppData() contracts.AppData {
	return contracts.AppData{DataDir: f.cfg.DataDir}
}

func (f *fakeController) Config() *config.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *f.cfg
	return &clone
}

func (f *fakeController) ApplyConfig(_ context.Context, cfg *config.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = cfg
	f.cfg = cfg
	return nil
}

func (f *fakeController) Session() lifecycle.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeController) StartServer(context.Context) (lifecycle.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return lifecycle.Session{}, f.startErr
	}
	f.session = lifecycle.Session{
		Status:    lifecycle.StatusStarted,
		URL:       "http://127.0.0.1:8080",
		PID:       4242,
		Reachable: true,
		StartedAt: time.Now(),
	}
	return f.session, nil
}

func (f *fakeController) StopServer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.session = lifecycle.Session{Status: lifecycle.StatusStopped}
	return nil
}

func (f *fakeController) RestartServer(ctx context.Context) (lifecycle.Session, error) {
	f.mu.Lock()
	f.restarts++
	f.mu.Unlock()
	if err := f.StopServer(ctx); err != nil {
		return lifecycle.Session{}, err
	}
	return f.StartServer(ctx)
}

func (f *fakeController) ResetApp(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.session = lifecycle.Session{Status: lifecycle.StatusStopped}
	return nil
}

func (f *fakeController) ServerLogs(lines int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logsReq = lines
	return f.logs, nil
}

func (f *fakeController) RecentRuns(int) ([]contracts.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, nil
}

func (f *fakeController) InstallRuntime(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runtimeInstalls++
	return nil
}

func (f *fakeController) InstallPackage(_ context.Context, upgrade bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packageInstalls++
	if upgrade {
		f.packageUpgrades++
	}
	return nil
}

func (f *fakeController) RuntimeStatus(context.Context) (contracts.RuntimeStatus, error) {
	return f.runtime, nil
}

func (f *fakeController) PackageStatus(context.Context) (contracts.PackageStatus, error) {
	return f.pkg, nil
}

func (f *fakeController) OpenBrowser(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeController) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, contracts.NotificationRequest{Title: title, Body: body})
	return nil
}

func (f *fakeController) SubscribeEvents() chan lifecycle.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan lifecycle.Event, 8)
	f.subs[ch] = struct{}{}
	return ch
}

func (f *fakeController) UnsubscribeEvents(ch chan lifecycle.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

func (f *fakeController) publish(evt lifecycle.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		ch <- evt
	}
}

var _ Controller = (*fakeController)(nil)

func newTestServer(t *testing.T) (*Server, *fakeController) {
	t.Helper()
	obs, err := observability.NewManager(zap.NewNop().Sugar(), observability.TracingConfig{ServiceName: "test"})
	require.NoError(t, err)
	tokens, err := NewTokenIssuer(time.Hour)
	require.NoError(t, err)
	gate := policy.NewGate(zap.NewNop(), policy.DefaultExemptOps)
	fake := newFakeController()
	return NewServer(fake, gate, tokens, obs, zap.NewNop()), fake
}

func doRequest(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, contracts.APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp contracts.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec, resp
}

func dataMap(t *testing.T, resp contracts.APIResponse) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func TestServerStartReturnsAddressAndPID(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/rpc/server:start", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	data := dataMap(t, resp)
	assert.Equal(t, "http://127.0.0.1:8080", data["url"])
	assert.Equal(t, float64(4242), data["pid"])
	assert.Equal(t, "started", data["status"])
	assert.Equal(t, 1, fake.starts)
}

func TestPrivilegedOpRejectedFromUntrustedOrigin(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/server/stop", "",
		map[string]string{"Origin": "https://evil.example"})

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "access_denied", resp.Code)
	assert.Equal(t, 0, fake.stops)
	assert.Empty(t, fake.notifications)
}

func TestStatusQueriesExemptFromOriginGate(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, target := range []string{"/api/v1/server/status", "/api/v1/status/python", "/api/v1/status/package"} {
		rec, resp := doRequest(t, srv.Handler(), http.MethodGet, target, "",
			map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.True(t, resp.Success, target)
	}
}

func TestLoopbackOriginAllowed(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/server/start", "",
		map[string]string{"Origin": "http://localhost:8080"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.starts)
}

func TestSurfaceTokenGrantsTrust(t *testing.T) {
	srv, fake := newTestServer(t)
	token, err := srv.tokens.Issue("renderer")
	require.NoError(t, err)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/server/stop", "",
		map[string]string{
			"Origin":        "https://evil.example",
			"Authorization": "Bearer " + token,
		})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, fake.stops)
}

func TestInvalidSurfaceTokenRejected(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/server/stop", "",
		map[string]string{"Authorization": "Bearer not-a-token"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, 0, fake.stops)
}

func TestUnknownOperationReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/rpc/server:explode", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "server:explode")
}

func TestSetConfigMergesPayload(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPut, "/api/v1/config", `{"port": 9999}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotNil(t, fake.applied)
	require.NotNil(t, fake.applied.Port)
	assert.Equal(t, 9999, *fake.applied.Port)
	assert.Equal(t, "/tmp/open-webui-desktop-test", fake.applied.DataDir)
}

func TestSetConfigValidationFailureMapsToBadRequest(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.applyErr = contracts.ConfigError("port out of range", nil)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPut, "/api/v1/config", `{"port": 70000}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "config_error", resp.Code)
}

func TestSetConfigImmutableFieldRejected(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPut, "/api/v1/config", `{"data_dir": "/somewhere/else"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "config_error", resp.Code)
	assert.Contains(t, resp.Error, "data_dir")
	assert.Nil(t, fake.applied)
}

func TestConcurrentStartMapsToConflict(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.startErr = contracts.ConcurrencyError("another control operation is in flight")

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/server/start", "", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "concurrency_error", resp.Code)
}

func TestLaunchFailureMapsToServerError(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.startErr = contracts.LaunchError("spawn failed", errors.New("no such file"))

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/rpc/server:start", "", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "launch_error", resp.Code)
}

func TestMalformedPayloadRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/rpc/notification", `{"title":`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestNotificationRequiresTitle(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/notifications", `{"body":"no title"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.notifications)
}

func TestNotificationDelivered(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/notifications",
		`{"title":"Server ready","body":"Open WebUI is reachable"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.Len(t, fake.notifications, 1)
	assert.Equal(t, "Server ready", fake.notifications[0].Title)
}

func TestOpenBrowserDefaultsToSessionURL(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.session = lifecycle.Session{Status: lifecycle.StatusStarted, URL: "http://127.0.0.1:8080"}

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/browser/open", `{}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.opened, 1)
	assert.Equal(t, "http://127.0.0.1:8080", fake.opened[0])
}

func TestOpenBrowserWithoutRunningServerFails(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/browser/open", `{}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.opened)
}

func TestServerLogsAliasReadsQuery(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/server/logs?lines=5", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, fake.logsReq)
	data := dataMap(t, resp)
	assert.Equal(t, float64(2), data["count"])
}

func TestInstallPackageUpgradeFlag(t *testing.T) {
	srv, fake := newTestServer(t)

	rec, _ := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/install/package", `{"upgrade": true}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.packageInstalls)
	assert.Equal(t, 1, fake.packageUpgrades)
}

func TestAppInfoAlias(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/app/info", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "v1.2.3", data["version"])
	assert.Equal(t, "linux", data["platform"])
}

func TestListOpsIncludesCatalogue(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/ops", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	ops, ok := data["ops"].([]any)
	require.True(t, ok)
	assert.Contains(t, ops, "server:start")
	assert.Contains(t, ops, "status:server")
}

func TestHealthEndpointsMounted(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func readSSEFrame(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if event != "" || data != "" {
				return event, data
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventStreamSnapshotThenLiveEvents(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.session = lifecycle.Session{
		Status:    lifecycle.StatusStarted,
		URL:       "http://127.0.0.1:8080",
		PID:       99,
		Reachable: true,
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	event, data := readSSEFrame(t, reader)
	assert.Equal(t, "server.state", event)
	var snapshot lifecycle.Event
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Equal(t, "started", snapshot.Payload["status"])
	assert.Equal(t, "http://127.0.0.1:8080", snapshot.Payload["url"])

	fake.publish(lifecycle.Event{
		Type:      lifecycle.EventTypeNotification,
		Timestamp: time.Now().UTC(),
		Payload:   map[string]any{"title": "Server ready"},
	})

	event, data = readSSEFrame(t, reader)
	assert.Equal(t, "notification", event)
	assert.Contains(t, data, "Server ready")
}
