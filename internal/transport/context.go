package transport

import "context"

// ConnectionSource identifies how a control-surface request reached us
type ConnectionSource string

const (
	// ConnectionSourceTCP identifies requests from the loopback TCP listener (browsers, curl)
	ConnectionSourceTCP ConnectionSource = "tcp"
	// ConnectionSourceSocket identifies requests from the local control socket (CLI, tray)
	ConnectionSourceSocket ConnectionSource = "socket"
	// ConnectionSourceRenderer identifies requests authenticated with a shell-minted token
	ConnectionSourceRenderer ConnectionSource = "renderer"
)

// Trusted reports whether the source sits inside the shell's trust boundary
// and may invoke privileged operations without an origin check.
func (s ConnectionSource) Trusted() bool {
	return s == ConnectionSourceSocket || s == ConnectionSourceRenderer
}

// Context key for connection source tagging
type contextKey string

const connSourceKey contextKey = "connection_source"

// TagConnectionContext tags a context with the connection source
func TagConnectionContext(ctx context.Context, source ConnectionSource) context.Context {
	return context.WithValue(ctx, connSourceKey, source)
}

// GetConnectionSource retrieves the connection source from context
func GetConnectionSource(ctx context.Context) ConnectionSource {
	if source, ok := ctx.Value(connSourceKey).(ConnectionSource); ok {
		return source
	}
	return ConnectionSourceTCP // Default to TCP (most restrictive)
}
