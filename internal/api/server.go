// Package api serves the portal's HTTP API: login and session endpoints, the
// administrator's directory settings, health and metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	ldap "github.com/conectseas/directory-auth"
	"github.com/conectseas/directory-auth/internal/auth"
)

// ConnectionTester runs the administrator's directory diagnostic.
type ConnectionTester interface {
	TestConnection(ctx context.Context, cfg ldap.DirectoryConfig) ldap.DiagnosticTrace
}

// DirectorySettings loads and saves the stored directory configuration.
type DirectorySettings interface {
	Load(ctx context.Context) (ldap.DirectoryConfig, error)
	Save(ctx context.Context, cfg ldap.DirectoryConfig) error
}

type Deps struct {
	Login     *auth.LoginService
	Sessions  *auth.SessionManager
	Directory DirectorySettings
	Tester    ConnectionTester
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

type Server struct {
	deps       Deps
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger.With(slog.String("component", "api"))}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Route("/admin/ldap", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", s.handleGetDirectory)
				r.Put("/", s.handlePutDirectory)
				r.Post("/test", s.handleTestDirectory)
			})
		})
	})
	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http_server_listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
