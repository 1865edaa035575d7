// Package server is the web gateway: it owns the session cookie, guards
// protected navigations against the backend identity endpoint, and
// terminates the OAuth callback.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sessiongate/sessiongate/backend"
	"github.com/sessiongate/sessiongate/internal/config"
	"github.com/sessiongate/sessiongate/session"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      *backend.Client
	sessions *session.Manager
}

func New(cfg config.Config, api *backend.Client) (*Server, error) {
	sessions, err := session.NewManager(api, session.NewCookieStore(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create session manager")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		api:      api,
		sessions: sessions,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions exposes the session façade, primarily for tests.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
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
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
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
