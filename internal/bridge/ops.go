package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

const (
	defaultLogLines  = 100
	defaultRunsLimit = 20
)

// Handler executes one control operation against the raw request payload.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Op is a registered control operation. Read-only ops bypass the origin
// gate; every other op is checked against the caller origin before its
// handler runs.
type Op struct {
	Name     string
	ReadOnly bool

	handler Handler
}

// Registry is the operation catalogue keyed by RPC name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Op
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Op)}
}

// Register adds an operation. Registering the same name twice replaces the
// earlier handler.
func (r *Registry) Register(name string, readOnly bool, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = &Op{Name: name, ReadOnly: readOnly, handler: handler}
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (*Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// badRequestError marks handler failures caused by the request payload so
// the transport can answer 400 instead of 500.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &badRequestError{err: err} }

// nullary adapts a payload-free handler to the Handler signature.
func nullary(fn func(ctx context.Context) (any, error)) Handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

// typed decodes the payload into In before invoking fn. An absent payload
// yields the zero value.
func typed[In any](fn func(ctx context.Context, in In) (any, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in In
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &in); err != nil {
				return nil, badRequest(fmt.Errorf("invalid request payload: %w", err))
			}
		}
		return fn(ctx, in)
	}
}

type installPackageRequest struct {
	Upgrade bool `json:"upgrade"`
}

type logsRequest struct {
	Lines int `json:"lines"`
}

type runsRequest struct {
	Limit int `json:"limit"`
}

// registerOps wires the full RPC catalogue. The three status queries are the
// only read-only exemptions; everything else goes through the origin gate.
func (s *Server) registerOps() {
	s.registry.Register("app:info", false, nullary(s.opAppInfo))
	s.registry.Register("app:data", false, nullary(s.opAppData))
	s.registry.Register("app:reset", false, nullary(s.opAppReset))
	s.registry.Register("get:version", false, nullary(s.opVersion))
	s.registry.Register("get:config", false, nullary(s.opGetConfig))
	s.registry.Register("set:config", false, s.opSetConfig)
	s.registry.Register("install:python", false, nullary(s.opInstallRuntime))
	s.registry.Register("install:package", false, typed(s.opInstallPackage))
	s.registry.Register("status:python", true, nullary(s.opRuntimeStatus))
	s.registry.Register("status:package", true, nullary(s.opPackageStatus))
	s.registry.Register("status:server", true, nullary(s.opServerStatus))
	s.registry.Register("server:start", false, nullary(s.opServerStart))
	s.registry.Register("server:stop", false, nullary(s.opServerStop))
	s.registry.Register("server:restart", false, nullary(s.opServerRestart))
	s.registry.Register("server:info", false, nullary(s.opServerInfo))
	s.registry.Register("server:url", false, nullary(s.opServerURL))
	s.registry.Register("server:logs", false, typed(s.opServerLogs))
	s.registry.Register("server:runs", false, typed(s.opServerRuns))
	s.registry.Register("open:browser", false, typed(s.opOpenBrowser))
	s.registry.Register("notification", false, typed(s.opNotification))
}

func (s *Server) opAppInfo(context.Context) (any, error) {
	return s.controller.AppInfo(), nil
}

func (s *Server) opAppData(context.Context) (any, error) {
	return s.controller.AppData(), nil
}

func (s *Server) opVersion(context.Context) (any, error) {
	return contracts.VersionResponse{Version: s.controller.AppInfo().Version}, nil
}

func (s *Server) opGetConfig(context.Context) (any, error) {
	return s.controller.Config(), nil
}

// opSetConfig merges the payload over the current configuration so callers
// can send only the fields they change. Immutable fields and validation
// failures surface as bad requests rather than partial applies.
func (s *Server) opSetConfig(ctx context.Context, payload json.RawMessage) (any, error) {
	if len(payload) == 0 || string(payload) == "null" {
		payload = json.RawMessage(`{}`)
	}
	merged, diff, err := config.MergeConfig(s.controller.Config(), payload)
	if err != nil {
		if errors.Is(err, config.ErrImmutableField) || errors.Is(err, config.ErrInvalidConfig) {
			return nil, contracts.ConfigError("config update rejected", err)
		}
		return nil, badRequest(err)
	}
	if diff.IsEmpty() {
		return s.controller.Config(), nil
	}
	if err := s.controller.ApplyConfig(ctx, merged); err != nil {
		return nil, err
	}
	return s.controller.Config(), nil
}

func (s *Server) opInstallRuntime(ctx context.Context) (any, error) {
	if err := s.controller.InstallRuntime(ctx); err != nil {
		return nil, err
	}
	return s.controller.RuntimeStatus(ctx)
}

func (s *Server) opInstallPackage(ctx context.Context, req installPackageRequest) (any, error) {
	if err := s.controller.InstallPackage(ctx, req.Upgrade); err != nil {
		return nil, err
	}
	return s.controller.PackageStatus(ctx)
}

func (s *Server) opRuntimeStatus(ctx context.Context) (any, error) {
	return s.controller.RuntimeStatus(ctx)
}

func (s *Server) opPackageStatus(ctx context.Context) (any, error) {
	return s.controller.PackageStatus(ctx)
}

func (s *Server) opServerStatus(context.Context) (any, error) {
	return map[string]any{"status": string(s.controller.Session().Status)}, nil
}

func (s *Server) opServerStart(ctx context.Context) (any, error) {
	sess, err := s.controller.StartServer(ctx)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

func (s *Server) opServerStop(ctx context.Context) (any, error) {
	if err := s.controller.StopServer(ctx); err != nil {
		return nil, err
	}
	return sessionInfo(s.controller.Session()), nil
}

func (s *Server) opServerRestart(ctx context.Context) (any, error) {
	sess, err := s.controller.RestartServer(ctx)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

func (s *Server) opServerInfo(context.Context) (any, error) {
	return sessionInfo(s.controller.Session()), nil
}

func (s *Server) opServerURL(context.Context) (any, error) {
	return contracts.URLResponse{URL: s.controller.Session().URL}, nil
}

func (s *Server) opServerLogs(_ context.Context, req logsRequest) (any, error) {
	lines := req.Lines
	if lines <= 0 {
		lines = defaultLogLines
	}
	tail, err := s.controller.ServerLogs(lines)
	if err != nil {
		return nil, err
	}
	return contracts.LogsResponse{Lines: tail, Count: len(tail)}, nil
}

func (s *Server) opServerRuns(_ context.Context, req runsRequest) (any, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.controller.RecentRuns(limit)
	if err != nil {
		return nil, err
	}
	return contracts.RunsResponse{Runs: runs, Count: len(runs)}, nil
}

func (s *Server) opAppReset(ctx context.Context) (any, error) {
	if err := s.controller.ResetApp(ctx); err != nil {
		return nil, err
	}
	return sessionInfo(s.controller.Session()), nil
}

func (s *Server) opOpenBrowser(ctx context.Context, req contracts.OpenBrowserRequest) (any, error) {
	url := req.URL
	if url == "" {
		url = s.controller.Session().URL
	}
	if url == "" {
		return nil, badRequest(fmt.Errorf("no url to open: server is not running"))
	}
	if err := s.controller.OpenBrowser(ctx, url); err != nil {
		return nil, err
	}
	return map[string]any{"opened": url}, nil
}

func (s *Server) opNotification(_ context.Context, req contracts.NotificationRequest) (any, error) {
	if req.Title == "" {
		return nil, badRequest(fmt.Errorf("notification title is required"))
	}
	if err := s.controller.Notify(req.Title, req.Body); err != nil {
		return nil, err
	}
	return map[string]any{"delivered": true}, nil
}

// sessionInfo converts an orchestrator session snapshot to its API shape.
func sessionInfo(sess lifecycle.Session) contracts.ServerInfo {
	info := contracts.ServerInfo{
		URL:       sess.URL,
		LANURL:    sess.LANURL,
		Status:    string(sess.Status),
		PID:       sess.PID,
		Reachable: sess.Reachable,
		LastError: sess.LastError,
	}
	if !sess.StartedAt.IsZero() {
		startedAt := sess.StartedAt
		info.StartedAt = &startedAt
	}
	return info
}
