// Package server exposes the auth subsystem over HTTP: registration,
// login, the cookie-scoped refresh endpoint, logout, and the bearer
// middleware protecting API routes.
package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	verifier *token.Verifier
	log      zerolog.Logger
}

func New(cfg config.Config, authService *auth.Service, verifier *token.Verifier, logger zerolog.Logger) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if verifier == nil {
		return nil, errors.New("[server.New] token verifier is required")
	}

	s := &Server{
		env:      cfg.Env,
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		verifier: verifier,
		log:      logger,
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
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.log.Debug().Str("route", route).Msg("registered route")
	}
}
