// Package gateway is the shell's rendering surface: a loopback reverse proxy
// in front of the managed server. While the session is started it forwards
// traffic and pins the content security policy on every response; otherwise
// it renders a status page that can drive the control surface directly.
package gateway

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
	"github.com/andrejvysny/open-webui-desktop/internal/policy"
	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// SessionSource provides the current session snapshot.
type SessionSource interface {
	Session() lifecycle.Session
}

// TokenMinter mints surface tokens so the status page can call privileged
// control operations.
type TokenMinter interface {
	Issue(surface string) (string, error)
}

// Gateway proxies the managed server and serves the offline status page.
type Gateway struct {
	logger     *zap.Logger
	source     SessionSource
	tokens     TokenMinter
	controlURL string
	version    string
	proxy      *httputil.ReverseProxy
	tmpl       *template.Template
}

// New creates a gateway. controlURL is the base URL of the control surface,
// reachable from pages the gateway serves.
func New(source SessionSource, tokens TokenMinter, controlURL, version string, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		logger:     logger,
		source:     source,
		tokens:     tokens,
		controlURL: controlURL,
		version:    version,
		tmpl:       tmpl,
	}
	g.proxy = &httputil.ReverseProxy{
		Director:       g.director,
		ModifyResponse: g.modifyResponse,
		ErrorHandler:   g.proxyError,
		Transport:      transport.NewLoggingTransport(nil, logger),
	}
	return g, nil
}

// ServeHTTP routes to the upstream while the session is started and to the
// status page otherwise.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := g.source.Session()
	if sess.Status == lifecycle.StatusStarted && sess.URL != "" {
		g.proxy.ServeHTTP(w, r)
		return
	}
	g.serveStatusPage(w, sess, "")
}

// Serve runs the gateway on the listener until ctx is cancelled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           g,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("Gateway shutdown incomplete", zap.Error(err))
		}
	}()

	g.logger.Info("Gateway listening", zap.String("addr", ln.Addr().String()))
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// director rewrites the request toward the session URL. The target is read
// per request so a restart that lands on a different port needs no gateway
// reconfiguration.
func (g *Gateway) director(req *http.Request) {
	sess := g.source.Session()
	target, err := url.Parse(sess.URL)
	if err != nil || target.Host == "" {
		// Proxy error handler turns the dial failure into the status page.
		req.URL.Scheme = "http"
		req.URL.Host = "127.0.0.1:0"
		return
	}
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.Host = target.Host
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", "")
	}
}

func (g *Gateway) modifyResponse(resp *http.Response) error {
	sess := g.source.Session()
	policy.RewriteHeaders(resp.Header, resp.Request.URL.Host, hostOf(sess.URL))
	return nil
}

func (g *Gateway) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Warn("Upstream request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	g.renderStatus(w, g.source.Session(), "The server connection was interrupted.")
}

type statusPageData struct {
	Status     string
	Starting   bool
	Failed     bool
	LastError  string
	Message    string
	ControlURL string
	Token      string
	Version    string
}

func (g *Gateway) serveStatusPage(w http.ResponseWriter, sess lifecycle.Session, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	g.renderStatus(w, sess, message)
}

func (g *Gateway) renderStatus(w http.ResponseWriter, sess lifecycle.Session, message string) {
	var token string
	if g.tokens != nil {
		minted, err := g.tokens.Issue("status-page")
		if err != nil {
			g.logger.Warn("Failed to mint status page token", zap.Error(err))
		} else {
			token = minted
		}
	}

	data := statusPageData{
		Status:     string(sess.Status),
		Starting:   sess.Status == lifecycle.StatusStarting,
		Failed:     sess.Status == lifecycle.StatusFailed,
		LastError:  sess.LastError,
		Message:    message,
		ControlURL: g.controlURL,
		Token:      token,
		Version:    g.version,
	}
	if err := g.tmpl.ExecuteTemplate(w, "status.html", data); err != nil {
		g.logger.Error("Failed to render status page", zap.Error(err))
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
