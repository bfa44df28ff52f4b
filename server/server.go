package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/evaultlabs/evault-server/auth"
	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/sessions"
	"github.com/evaultlabs/evault-server/users"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service

	sessions sessions.Repo
	users    users.Repo

	healthChecks map[string]func(context.Context) error
}

func New(cfg config.Config, authService *auth.Service, sessionRepo sessions.Repo, userRepo users.Repo) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] sessions repo is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("[Server New] users repo is required")
	}

	s := &Server{
		mux:          http.NewServeMux(),
		config:       cfg,
		auth:         authService,
		sessions:     sessionRepo,
		users:        userRepo,
		healthChecks: make(map[string]func(context.Context) error),
	}
	s.env = cfg.GetEnv()

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

// AddHealthCheck registers a named dependency probe served by the healthz
// endpoint.
func (s *Server) AddHealthCheck(name string, ping func(context.Context) error) {
	s.healthChecks[name] = ping
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
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
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + resetColor
	} else {
		displayMethod = gray + paddedMethod + resetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
