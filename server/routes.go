package server

func (s *Server) initRoutes() {
	// Protected surfaces
	s.RegisterRouteHandler("GET "+RouteHome, ChainMiddleware(s.HomeHandler(), s.WebMiddleware(s.RequireSession(RouteLogin))...))
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.AdminHomeHandler(), s.WebMiddleware(s.RequireSession(RouteAdminLogin))...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.WebMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAdminLogin, ChainMiddleware(s.LoginPageHandler(), s.WebMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.WebMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.WebMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAdminAuthLogout, ChainMiddleware(s.LogoutHandler(), s.WebMiddleware()...))

	// OAuth bridge
	s.RegisterRouteHandler("GET "+RouteAuthGoogle, ChainMiddleware(s.GoogleLoginHandler(), s.WebMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.WebMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.WebMiddleware()...))
}
