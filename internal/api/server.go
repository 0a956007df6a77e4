package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/org/authgate/internal/audit"
	"github.com/org/authgate/internal/auth"
	"github.com/org/authgate/internal/engine"
	"github.com/org/authgate/internal/routes"
	"github.com/org/authgate/internal/storage"
	"github.com/org/authgate/pkg/models"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string
	TLSCertFile   string
	TLSKeyFile    string
	AdminToken    string
	JWTSecret     string
	JWTIssuer     string
	SessionTTL    time.Duration
	RouteClasses  map[string]string // path glob pattern → route class
	Engine        engine.Config
}

// AuditLogger is the interface the server needs from an audit logger.
type AuditLogger interface {
	Emit(ctx context.Context, ev models.SecurityEvent)
	Query(ctx context.Context, filter storage.EventFilter) ([]*models.SecurityEvent, error)
}

// Server is the API server.
type Server struct {
	store    storage.Backend
	engine   *engine.Engine
	sessions *auth.SessionService
	auditor  AuditLogger
	routes   *routes.Matcher
	cfg      Config
	httpSrv  *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(store storage.Backend, cfg Config) (*Server, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	sessions := auth.NewSessionService(store, cfg.SessionTTL)
	validators := &auth.ValidatorSet{
		JWT:      auth.NewJWTValidator([]byte(cfg.JWTSecret), cfg.JWTIssuer),
		Sessions: sessions,
	}
	auditor := audit.NewLogger(store)

	eng, err := engine.New(cfg.Engine, validators, auditor)
	if err != nil {
		return nil, err
	}
	registerStatsSource(eng.Stats())

	return &Server{
		store:    store,
		engine:   eng,
		sessions: sessions,
		auditor:  auditor,
		routes:   routes.NewMatcher(cfg.RouteClasses),
		cfg:      cfg,
	}, nil
}

// Engine exposes the coordination engine (for embedding the middleware in
// another router).
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(accessLogMiddleware)

	// Prometheus metrics (unauthenticated)
	r.Handle("/metrics", MetricsHandler())

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/v1/sys/health", s.HealthHandler)
		r.Get("/v1/auth/check", s.AuthCheckHandler)
		r.Post("/v1/auth/check", s.AuthCheckHandler)
	})

	// Operator routes (static admin token)
	r.Group(func(r chi.Router) {
		r.Use(adminAuthMiddleware(s.cfg.AdminToken))

		r.Get("/v1/stats", s.StatsHandler)
		r.Get("/v1/security/events", s.EventsHandler)
		r.Post("/v1/sessions", s.SessionCreateHandler)
		r.Delete("/v1/sessions/{id}", s.SessionRevokeHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		s.httpSrv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// routeClass maps the request being authenticated onto a coarse endpoint
// category. Forward-auth deployments put the original URI in
// X-Forwarded-Uri; direct callers may pass ?route= explicitly.
func (s *Server) routeClass(r *http.Request) string {
	if route := r.URL.Query().Get("route"); route != "" {
		return route
	}
	path := r.Header.Get("X-Forwarded-Uri")
	if path == "" {
		path = r.URL.Path
	}
	return s.routes.Class(path)
}
