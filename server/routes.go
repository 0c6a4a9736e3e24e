package server

import "net/http"

func (s *Server) initRoutes() {
	// Session lifecycle
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Protected routes
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.ProtectedMiddleware()...))

	// External provider flows are not implemented; the stub reports the
	// authorize URL a full implementation would redirect to.
	s.RegisterRouteHandler("GET "+RouteOAuthProvider, ChainMiddleware(s.OAuthAuthorizeStubHandler(), s.APIMiddleware()...))

	// Method-specific patterns leave OPTIONS to the mux's 405, so
	// browser preflights need their own route to reach CorsMiddleware.
	s.RegisterRouteHandler("OPTIONS /auth/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
	}
}

func (s *Server) ProtectedMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.APIMiddleware(), s.RequireAuth())
}
