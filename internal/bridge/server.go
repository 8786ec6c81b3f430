package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/observability"
	"github.com/andrejvysny/open-webui-desktop/internal/policy"
	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

const (
	apiTimeout      = 60 * time.Second
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

type correlationIDKeyType string

const correlationIDKey correlationIDKeyType = "correlation_id"

// Server is the HTTP control surface. Every operation, whether invoked via
// the RPC endpoint or a REST alias, funnels through a single dispatch path
// that enforces the origin gate and records observability signals.
type Server struct {
	controller Controller
	gate       *policy.Gate
	tokens     *TokenIssuer
	obs        *observability.Manager
	logger     *zap.Logger
	httpLogger *zap.Logger
	registry   *Registry
	router     chi.Router
}

// NewServer assembles the control surface around the given controller.
func NewServer(controller Controller, gate *policy.Gate, tokens *TokenIssuer, obs *observability.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		controller: controller,
		gate:       gate,
		tokens:     tokens,
		obs:        obs,
		logger:     logger,
		httpLogger: logger.Named("http"),
		registry:   NewRegistry(),
	}
	s.registerOps()
	s.router = chi.NewRouter()
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler for mounting on a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry exposes the operation catalogue, mainly for the CLI help output.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Serve runs the control surface on the listener until ctx is cancelled.
// Connections from source-tagged listeners (the control socket) carry their
// trust level into every request context.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			if sc, ok := c.(interface {
				ConnectionSource() transport.ConnectionSource
			}); ok {
				return transport.TagConnectionContext(ctx, sc.ConnectionSource())
			}
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Control surface shutdown incomplete", zap.Error(err))
		}
	}()

	s.logger.Info("Control surface listening", zap.String("addr", ln.Addr().String()))
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes() {
	r := s.router

	if s.obs != nil {
		r.Use(s.obs.HTTPMiddleware())
	}
	r.Use(s.httpLoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.correlationIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return policy.OriginAllowed(origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.obs != nil {
		r.Get("/healthz", s.obs.Health().HealthzHandler())
		r.Get("/readyz", s.obs.Health().ReadyzHandler())
		r.Handle("/metrics", s.obs.Metrics().Handler())
	}

	sw := &swaggerHandler{logger: s.logger}
	r.Handle("/swagger", sw)
	r.Handle("/swagger/*", sw)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(apiTimeout))
		api.Use(s.tokenAuthMiddleware)

		api.Post("/rpc/{op}", s.handleRPC)

		api.Get("/ops", s.handleListOps)
		api.Get("/app/info", s.alias("app:info"))
		api.Get("/app/data", s.alias("app:data"))
		api.Post("/app/reset", s.alias("app:reset"))
		api.Get("/version", s.alias("get:version"))
		api.Get("/config", s.alias("get:config"))
		api.Put("/config", s.alias("set:config"))

		api.Route("/server", func(srv chi.Router) {
			srv.Get("/", s.alias("server:info"))
			srv.Get("/status", s.alias("status:server"))
			srv.Get("/url", s.alias("server:url"))
			srv.Get("/logs", s.handleServerLogs)
			srv.Get("/runs", s.handleServerRuns)
			srv.Post("/start", s.alias("server:start"))
			srv.Post("/stop", s.alias("server:stop"))
			srv.Post("/restart", s.alias("server:restart"))
		})

		api.Post("/install/python", s.alias("install:python"))
		api.Post("/install/package", s.alias("install:package"))
		api.Get("/status/python", s.alias("status:python"))
		api.Get("/status/package", s.alias("status:package"))

		api.Post("/browser/open", s.alias("open:browser"))
		api.Post("/notifications", s.alias("notification"))

		api.Get("/events", s.handleSSEEvents)
	})
}

// handleRPC dispatches POST /api/v1/rpc/{op} with the body as payload.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, chi.URLParam(r, "op"), nil)
}

// alias maps a REST route onto a catalogue operation.
func (s *Server) alias(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.dispatch(w, r, op, nil)
	}
}

func (s *Server) handleListOps(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, contracts.NewSuccessResponse(map[string]any{
		"ops": s.registry.Names(),
	}))
}

func (s *Server) handleServerLogs(w http.ResponseWriter, r *http.Request) {
	lines := queryInt(r, "lines", defaultLogLines)
	payload, _ := json.Marshal(logsRequest{Lines: lines})
	s.dispatch(w, r, "server:logs", payload)
}

func (s *Server) handleServerRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRunsLimit)
	payload, _ := json.Marshal(runsRequest{Limit: limit})
	s.dispatch(w, r, "server:runs", payload)
}

// dispatch is the single choke point for every control operation: catalogue
// lookup, origin gate, handler execution, metrics, and the response envelope.
// A nil payload means the request body is the payload.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, opName string, payload json.RawMessage) {
	op, ok := s.registry.Lookup(opName)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, contracts.NewErrorResponse(fmt.Sprintf("unknown operation %q", opName)))
		return
	}

	ctx := r.Context()
	origin := r.Header.Get("Origin")
	source := transport.GetConnectionSource(ctx)

	if !op.ReadOnly && !source.Trusted() {
		if err := s.gate.Authorize(op.Name, origin); err != nil {
			if s.obs != nil {
				s.obs.RecordAccessDenied(op.Name)
			}
			s.writeOpError(w, err)
			return
		}
	}

	if payload == nil && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, contracts.NewErrorResponse("failed to read request body"))
			return
		}
		if len(body) > maxBodyBytes {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, contracts.NewErrorResponse("request body too large"))
			return
		}
		payload = body
	}

	start := time.Now()
	spanCtx := ctx
	if s.obs != nil {
		var span oteltrace.Span
		spanCtx, span = s.obs.Tracing().TraceControlCall(ctx, op.Name, origin)
		defer span.End()
	}

	data, err := op.handler(spanCtx, payload)
	if s.obs != nil {
		s.obs.RecordControlCall(spanCtx, op.Name, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("Control operation failed",
			zap.String("op", op.Name),
			zap.String("source", string(source)),
			zap.Error(err))
		s.writeOpError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, contracts.NewSuccessResponse(data))
}

// tokenAuthMiddleware upgrades requests bearing a valid surface token to the
// renderer trust level. Requests without a token pass through untouched; the
// origin gate still governs privileged operations for them.
func (s *Server) tokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil || transport.GetConnectionSource(r.Context()).Trusted() {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		surface, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.Warn("Rejected invalid surface token", zap.Error(err))
			s.writeJSON(w, http.StatusUnauthorized, contracts.NewErrorResponse("invalid or expired token"))
			return
		}

		ctx := transport.TagConnectionContext(r.Context(), transport.ConnectionSourceRenderer)
		s.httpLogger.Debug("Authenticated surface request", zap.String("surface", surface))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the surface token from the Authorization header, the
// X-Bridge-Token header, or the token query parameter (EventSource cannot
// set headers).
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := r.Header.Get("X-Bridge-Token"); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func (s *Server) correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		w.Header().Set("X-Correlation-ID", correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) httpLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.httpLogger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// writeOpError maps a classified operation error to an HTTP status and the
// standard error envelope.
func (s *Server) writeOpError(w http.ResponseWriter, err error) {
	var br *badRequestError
	if errors.As(err, &br) {
		s.writeJSON(w, http.StatusBadRequest, contracts.NewErrorResponse(br.Error()))
		return
	}
	s.writeJSON(w, statusForKind(contracts.KindOf(err)), contracts.NewClassifiedErrorResponse(err))
}

func statusForKind(kind contracts.Kind) int {
	switch kind {
	case contracts.KindAccessDenied:
		return http.StatusForbidden
	case contracts.KindConfig:
		return http.StatusBadRequest
	case contracts.KindConcurrency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload contracts.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
