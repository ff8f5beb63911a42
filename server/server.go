package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-admin/auth"
	"github.com/jrsteele09/go-tenant-admin/internal/config"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "production")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	tenants *tenants.Service
	repos   auth.Repos
	nowTime func() time.Time

	healthCheck func(ctx context.Context) error
}

// Option customises a Server
type Option func(*Server)

// WithNowTime sets the clock used by the server and its services (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithHealthCheck sets the dependency check behind GET /health
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.healthCheck = check
	}
}

// New builds the admin API on top of repos. The super user named by the
// config is seeded when it does not exist yet.
func New(cfg config.Config, repos auth.Repos, tokens *token.Manager, options ...Option) (*Server, error) {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		repos:   repos,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	authService, err := auth.NewService(repos, tokens,
		auth.WithNowTime(s.nowTime),
		auth.WithLoginRedirect(cfg.GetLoginRedirect()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create auth service")
	}
	s.auth = authService
	s.tenants = tenants.NewService(repos.Tenants, s.nowTime)

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to initialise the system")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

// clientIP prefers the first X-Forwarded-For hop over the socket address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
