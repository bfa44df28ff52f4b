package server

func (s *Server) initRoutes() {
	// GitHub handshake
	s.RegisterRouteHandler("GET "+RouteGitHubAuth, ChainMiddleware(s.GitHubAuthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteGitHubAuthToken, ChainMiddleware(s.GitHubAuthTokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteGitHubAuthLogout, ChainMiddleware(s.GitHubAuthLogoutHandler(), s.APIMiddleware()...))

	// Protected API (session gate)
	s.RegisterRouteHandler("GET "+RouteUser, ChainMiddleware(s.UserHandler(), s.APIMiddleware(s.RequireSessionAuth())...))

	// Operational
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))
}
