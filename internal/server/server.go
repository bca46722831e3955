// ABOUTME: Server orchestrator that wires store, directory, sessions and the HTTP API
// ABOUTME: Manages listener setup, the session sweeper and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/deflink/deflink/internal/api"
	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/config"
	"github.com/deflink/deflink/internal/directory"
	"github.com/deflink/deflink/internal/obs"
	"github.com/deflink/deflink/internal/ratelimit"
	"github.com/deflink/deflink/internal/store"
)

// SweepInterval is how often expired sessions are deleted.
const SweepInterval = 10 * time.Minute

// Server orchestrates the deflink server components.
type Server struct {
	config     *config.Config
	store      store.Store
	auth       *auth.Authenticator
	limiter    *ratelimit.Limiter
	metrics    *obs.Metrics
	api        *api.API
	httpServer *http.Server
	logger     *slog.Logger

	sweepInterval time.Duration
}

// OpenStore opens the backend selected by cfg.Database.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverPostgres:
		s, err := store.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	case config.DriverSQLite, "":
		s, err := store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// NewDirectory builds the directory service for cfg over s.
func NewDirectory(s store.Store, cfg *config.Config) *directory.Directory {
	defaultPassword := cfg.Auth.DefaultPassword
	return directory.New(s, directory.Options{
		ProviderDefaultStatus: directory.ProviderStatus(cfg.Directory.ProviderDefaultStatus),
		Seed:                  cfg.Directory.Seed,
		DefaultPasswordHash: func() (string, error) {
			return auth.HashPassword(defaultPassword)
		},
	})
}

// sessionSecret returns the configured signing secret, or a random one
// when none is configured.
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.SessionSecret != "" {
		return []byte(cfg.Auth.SessionSecret), nil
	}
	logger.Warn("auth.session_secret not set - using a random secret, sessions end on restart")
	return auth.NewSecret()
}

// New creates a Server over an opened store. The server owns s and closes
// it on Shutdown.
func New(ctx context.Context, cfg *config.Config, s store.Store, version string, logger *slog.Logger) (*Server, error) {
	logger = logger.With("component", "server")

	var metrics *obs.Metrics
	if cfg.Metrics.Enabled {
		metrics = obs.NewMetrics(version)
		s = metrics.InstrumentStore(s)
	}

	dir := NewDirectory(s, cfg)
	if err := dir.EnsureSeed(ctx); err != nil {
		return nil, fmt.Errorf("seeding directory: %w", err)
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return nil, err
	}
	sessions := auth.NewSessionManager(s, secret, cfg.Auth.SessionTTL)
	authenticator := auth.NewAuthenticator(dir.Settings(), sessions)

	var limiter *ratelimit.Limiter
	if cfg.Auth.LoginRatePerMinute > 0 {
		limiter = ratelimit.New(ratelimit.PerMinute(cfg.Auth.LoginRatePerMinute), cfg.Auth.LoginBurst, 15*time.Minute, 10_000)
	}

	srv := &Server{
		config:  cfg,
		store:   s,
		auth:    authenticator,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,

		sweepInterval: SweepInterval,
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv.api = api.New(api.Config{
		Directory:    dir,
		Auth:         authenticator,
		Cookie:       auth.CookieOptions{Secure: cfg.Auth.CookieSecure, MaxAge: cfg.Auth.SessionTTL},
		LoginLimiter: limiter,
		TrustProxy:   cfg.Server.TrustProxy,
		Metrics:      metrics,
		MetricsPath:  metricsPath,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Ready:        s.Ping,
		Logger:       logger,
	})

	if !cfg.Auth.CookieSecure {
		logger.Warn("auth.cookie_secure is false - session cookies are sent over plain HTTP")
	}

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.api,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return srv, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.api
}

// Run listens on the configured address and serves until ctx is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.auth.Sessions().RunSweeper(sweepCtx, s.sweepInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	// The sweeper uses the store, which shutdown closes.
	stopSweeper()
	<-sweepDone

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the serving context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", s.store.Close())
	if s.limiter != nil {
		s.limiter.Close()
	}

	return errors.Join(errs...)
}
