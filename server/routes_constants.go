package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// GitHub handshake routes
	RouteGitHubAuth       = "/api/github/auth"
	RouteGitHubAuthToken  = "/api/github/auth/token"
	RouteGitHubAuthLogout = "/api/github/auth/logout"

	// Protected API routes
	RouteUser = "/api/user"

	// Operational routes
	RouteHealthz = "/healthz"
)

// cookieAccessToken carries the opaque session identifier and nothing else;
// the GitHub bearer token never reaches the client.
const cookieAccessToken = "evault_access_token"
