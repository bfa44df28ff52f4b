package config

// GitHubConfig exposes the OAuth application settings used for the GitHub
// handshake. Values are read from the environment once per call site at
// startup and passed into components by construction; nothing reads them
// during request handling.
type GitHubConfig interface {
	GetGitHubClientID() string
	GetGitHubClientSecret() string
	GetGitHubRedirectURI() string
	GetGitHubScopes() string
}

type GitHub struct{}

var _ GitHubConfig = GitHub{}

func (GitHub) GetGitHubClientID() string {
	return GetEnv("GITHUB_OAUTH_CLIENT_ID", "")
}

func (GitHub) GetGitHubClientSecret() string {
	return GetEnv("GITHUB_OAUTH_CLIENT_SECRET", "")
}

func (GitHub) GetGitHubRedirectURI() string {
	return GetEnv("GITHUB_OAUTH_REDIRECT_URI", "http://localhost:5173/auth/github")
}

func (GitHub) GetGitHubScopes() string {
	return GetEnv("GITHUB_OAUTH_SCOPE", "repo read:user")
}
