// ABOUTME: Route table and middleware chain for the DefLink HTTP API
// ABOUTME: Public, session-gated and operational endpoints on one ServeMux

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/directory"
	"github.com/deflink/deflink/internal/obs"
	"github.com/deflink/deflink/internal/ratelimit"
)

// Config holds the dependencies of the API.
type Config struct {
	Directory *directory.Directory
	Auth      *auth.Authenticator
	Cookie    auth.CookieOptions

	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter *ratelimit.Limiter
	// TrustProxy reads the client IP from X-Forwarded-For.
	TrustProxy bool

	// Metrics records request metrics. Nil disables them.
	Metrics *obs.Metrics
	// MetricsPath serves Metrics when both are set.
	MetricsPath string

	MaxBodyBytes int64
	CORSOrigins  []string

	// Ready backs /health/ready. Nil always reports ready.
	Ready func(ctx context.Context) error

	Logger *slog.Logger
}

// API serves the DefLink HTTP endpoints.
type API struct {
	dir          *directory.Directory
	auth         *auth.Authenticator
	cookie       auth.CookieOptions
	loginLimiter *ratelimit.Limiter
	trustProxy   bool
	metrics      *obs.Metrics
	ready        func(ctx context.Context) error
	logger       *slog.Logger
	handler      http.Handler
}

// New builds the API and its route table.
func New(cfg Config) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		dir:          cfg.Directory,
		auth:         cfg.Auth,
		cookie:       cfg.Cookie,
		loginLimiter: cfg.LoginLimiter,
		trustProxy:   cfg.TrustProxy,
		metrics:      cfg.Metrics,
		ready:        cfg.Ready,
		logger:       logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, cfg.Metrics.Handler())
	}

	var h http.Handler = mux
	h = MaxBodyBytes(cfg.MaxBodyBytes)(h)
	h = CORS(cfg.CORSOrigins)(h)
	h = SecurityHeaders(h)
	h = Logging(a.logger)(h)
	h = cfg.Metrics.Instrument(h)
	a.handler = h
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) registerRoutes(mux *http.ServeMux) {
	gate := auth.RequireSession(a.auth, a.denySession, a.failSession)
	protected := func(h http.HandlerFunc) http.Handler { return gate(h) }

	mux.HandleFunc("GET /api/test", a.handleTest)

	mux.HandleFunc("POST /api/auth/oem-login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/session", a.handleSession)

	mux.Handle("GET /api/oem/requests", protected(a.handleListRequests))
	mux.Handle("POST /api/oem/requests", protected(a.handleSubmitRequest))

	mux.HandleFunc("GET /api/providers", a.handleListPublishedProviders)
	mux.HandleFunc("POST /api/providers", a.handleSubmitProvider)

	mux.Handle("GET /api/admin/oem-requests", protected(a.handleListRequests))
	mux.Handle("GET /api/admin/oem-requests/{id}", protected(a.handleGetRequest))
	mux.Handle("PATCH /api/admin/oem-requests/{id}", protected(a.handleUpdateRequest))
	mux.Handle("DELETE /api/admin/oem-requests/{id}", protected(a.handleDeleteRequest))

	mux.Handle("GET /api/admin/providers", protected(a.handleListAllProviders))
	mux.Handle("PATCH /api/admin/providers/{id}", protected(a.handleUpdateProvider))
	mux.Handle("DELETE /api/admin/providers/{id}", protected(a.handleDeleteProvider))

	mux.Handle("PATCH /api/admin/settings", protected(a.handleChangePassword))

	mux.HandleFunc("/api/", a.handleNotFound)

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /health/ready", a.handleReady)
}

func (a *API) denySession(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusUnauthorized, errUnauthorized)
}

func (a *API) failSession(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusInternalServerError, "internal server error")
}

func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}

// handleHealth returns 200 OK if the server is alive.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the store answers.
func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			a.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
