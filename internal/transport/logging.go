package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingTransport wraps an http.RoundTripper and logs each exchange at
// debug level. It is used for gateway upstream traffic and runtime archive
// downloads, where a failed exchange otherwise surfaces as a bare error
// with no timing context.
type LoggingTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
}

// NewLoggingTransport creates a logging HTTP transport around base.
func NewLoggingTransport(base http.RoundTripper, logger *zap.Logger) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{
		base:   base,
		logger: logger.Named("http-trace"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Debug("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	t.logger.Debug("HTTP exchange",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.Duration("duration", duration))

	return resp, nil
}

var _ http.RoundTripper = (*LoggingTransport)(nil)
