package policy

import (
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

// DefaultExemptOps lists the read-only status queries allowed from any
// origin. Exemptions are an explicit allow-list; every other operation is
// gated, never default-allowed.
var DefaultExemptOps = []string{
	"status:python",
	"status:package",
	"status:server",
}

// Gate rejects privileged control-surface calls from untrusted origins.
// Rejections are security events: they are logged and surfaced as
// AccessDenied, with no side effect executed and no user notification.
type Gate struct {
	logger *zap.Logger

	mu     sync.RWMutex
	exempt map[string]struct{}
}

// NewGate creates an origin gate with the given exempt operations. Pass
// DefaultExemptOps for the standard read-only exemptions.
func NewGate(logger *zap.Logger, exemptOps []string) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	exempt := make(map[string]struct{}, len(exemptOps))
	for _, op := range exemptOps {
		exempt[op] = struct{}{}
	}
	return &Gate{logger: logger, exempt: exempt}
}

// Authorize checks whether the given operation may be invoked from the given
// caller origin. It returns nil for exempt operations and trusted origins,
// and an AccessDenied error otherwise.
func (g *Gate) Authorize(op, origin string) error {
	g.mu.RLock()
	_, exempt := g.exempt[op]
	g.mu.RUnlock()
	if exempt {
		return nil
	}

	if OriginAllowed(origin) {
		return nil
	}

	g.logger.Warn("Rejected control call from untrusted origin",
		zap.String("op", op),
		zap.String("origin", origin))
	return contracts.AccessDeniedError(fmt.Sprintf("origin %q is not allowed to call %s", origin, op))
}

// IsExempt reports whether the operation bypasses the origin check.
func (g *Gate) IsExempt(op string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.exempt[op]
	return ok
}

// OriginAllowed reports whether a caller origin is trusted for privileged
// operations: the loopback hosts 127.0.0.1, localhost, and 0.0.0.0 on any
// port, and pages loaded from the file scheme (which browsers report as a
// "null" origin). Callers that present no origin at all, such as the CLI
// over the local control socket, are covered by transport-level trust and
// pass here.
func OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if origin == "null" {
		// Chromium sends a literal null origin for file:// pages.
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "file":
		return true
	case "http", "https", "ws", "wss":
	default:
		return false
	}

	switch u.Hostname() {
	case "127.0.0.1", "localhost", "0.0.0.0":
		return true
	}
	return false
}
