package policy

import (
	"net"
	"net/http"
	"strings"
)

const (
	cspHeader           = "Content-Security-Policy"
	cspReportOnlyHeader = "Content-Security-Policy-Report-Only"

	loopbackHTTPSources = "http://127.0.0.1:* http://localhost:* https://127.0.0.1:* https://localhost:*"
	loopbackWSSources   = "ws://127.0.0.1:* ws://localhost:* wss://127.0.0.1:* wss://localhost:*"
)

// FixedPolicy is the content security policy applied to every allow-listed
// response. Scripts, styles, and connections are limited to self and loopback
// origins on any port; images, fonts, and media may additionally load from
// any HTTPS origin so remote models and content previews keep working.
// Embedding is forbidden.
var FixedPolicy = strings.Join([]string{
	"default-src 'self' " + loopbackHTTPSources,
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' " + loopbackHTTPSources,
	"style-src 'self' 'unsafe-inline' " + loopbackHTTPSources,
	"connect-src 'self' " + loopbackHTTPSources + " " + loopbackWSSources,
	"img-src 'self' data: blob: https:",
	"font-src 'self' data: https:",
	"media-src 'self' data: blob: https:",
	"object-src 'none'",
	"frame-src 'self'",
}, "; ")

// RewriteHeaders replaces any content policy headers on a response destined
// for host with the fixed policy, when the host is loopback or matches the
// current session host. Responses for any other host pass through untouched;
// the policy is never widened for arbitrary destinations. It reports whether
// the headers were rewritten.
func RewriteHeaders(h http.Header, host, sessionHost string) bool {
	if !rewriteEligible(host, sessionHost) {
		return false
	}
	h.Del(cspHeader)
	h.Del(cspReportOnlyHeader)
	h.Set(cspHeader, FixedPolicy)
	return true
}

func rewriteEligible(host, sessionHost string) bool {
	switch hostnameOf(host) {
	case "127.0.0.1", "localhost", "0.0.0.0":
		return true
	}
	if sessionHost == "" {
		return false
	}
	return host == sessionHost || hostnameOf(host) == hostnameOf(sessionHost)
}

func hostnameOf(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}
