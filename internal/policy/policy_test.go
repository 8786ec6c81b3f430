package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

func TestFixedPolicyDirectives(t *testing.T) {
	assert.Contains(t, FixedPolicy, "object-src 'none'")
	assert.Contains(t, FixedPolicy, "frame-src 'self'")
	assert.Contains(t, FixedPolicy, "img-src 'self' data: blob: https:")
	assert.Contains(t, FixedPolicy, "http://127.0.0.1:*")
	assert.Contains(t, FixedPolicy, "wss://localhost:*")
	assert.NotContains(t, FixedPolicy, "default-src *")
}

func TestRewriteHeadersLoopback(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Security-Policy", "default-src 'none'")
	h.Set("Content-Security-Policy-Report-Only", "default-src 'none'")

	require.True(t, RewriteHeaders(h, "127.0.0.1:9999", ""))
	assert.Equal(t, FixedPolicy, h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Content-Security-Policy-Report-Only"))
}

func TestRewriteHeadersLocalhostWithoutPort(t *testing.T) {
	h := http.Header{}
	require.True(t, RewriteHeaders(h, "localhost", ""))
	assert.Equal(t, FixedPolicy, h.Get("Content-Security-Policy"))
}

func TestRewriteHeadersForeignHostUntouched(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Security-Policy", "default-src 'none'")

	require.False(t, RewriteHeaders(h, "example.com", ""))
	assert.Equal(t, "default-src 'none'", h.Get("Content-Security-Policy"))
}

func TestRewriteHeadersSessionHost(t *testing.T) {
	h := http.Header{}
	require.True(t, RewriteHeaders(h, "192.168.1.20:8080", "192.168.1.20:8080"))
	assert.Equal(t, FixedPolicy, h.Get("Content-Security-Policy"))

	h = http.Header{}
	require.False(t, RewriteHeaders(h, "192.168.1.20:8080", "192.168.1.30:8080"))
	assert.Empty(t, h.Get("Content-Security-Policy"))
}

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"http://127.0.0.1:8791", true},
		{"http://localhost:3000", true},
		{"https://localhost", true},
		{"http://0.0.0.0:8080", true},
		{"ws://127.0.0.1:8080", true},
		{"file:///opt/app/index.html", true},
		{"null", true},
		{"", true},
		{"https://example.com", false},
		{"http://192.168.1.5:8080", false},
		{"http://evil.localhost.example.com", false},
		{"chrome-extension://abcdef", false},
		{":::", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, OriginAllowed(tc.origin), "origin %q", tc.origin)
	}
}

func TestGateAuthorize(t *testing.T) {
	gate := NewGate(zap.NewNop(), DefaultExemptOps)

	require.NoError(t, gate.Authorize("server:start", "http://127.0.0.1:8791"))
	require.NoError(t, gate.Authorize("server:start", "null"))

	err := gate.Authorize("server:start", "https://example.com")
	require.Error(t, err)
	assert.Equal(t, contracts.KindAccessDenied, contracts.KindOf(err))

	err = gate.Authorize("app:reset", "http://10.0.0.7:9000")
	require.Error(t, err)
	assert.Equal(t, contracts.KindAccessDenied, contracts.KindOf(err))
}

func TestGateExemptionsAreExplicit(t *testing.T) {
	gate := NewGate(zap.NewNop(), DefaultExemptOps)

	// Read-only status queries pass from anywhere.
	require.NoError(t, gate.Authorize("status:server", "https://example.com"))
	require.NoError(t, gate.Authorize("status:python", "https://example.com"))
	require.NoError(t, gate.Authorize("status:package", "https://example.com"))
	assert.True(t, gate.IsExempt("status:server"))

	// Everything else stays gated, including other reads.
	assert.False(t, gate.IsExempt("get:config"))
	require.Error(t, gate.Authorize("get:config", "https://example.com"))
	require.Error(t, gate.Authorize("server:info", "https://example.com"))
}
