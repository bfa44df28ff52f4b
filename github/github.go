// Package github is the identity-provider client: it builds the OAuth
// redirect URLs and performs the two outbound calls of the handshake, the
// code-for-token exchange and the profile fetch.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultAuthBaseURL = "https://github.com/login/oauth"
	defaultAPIBaseURL  = "https://api.github.com"

	apiVersionHeader = "2022-11-28"
	userAgent        = "evault-server"

	// Outbound provider calls are bounded by this deadline. A timed-out call
	// surfaces as a gateway failure to the waiting request; it is never
	// retried here, a retry could redeem the one-time code twice.
	requestTimeout = 10 * time.Second
)

// API performs the outbound GitHub OAuth and REST calls. Configuration is
// captured at construction and never re-read during request handling.
type API struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       string

	authBaseURL string
	apiBaseURL  string
	httpClient  *http.Client
}

// Option modifies an API instance at construction time.
type Option func(*API)

// WithBaseURLs overrides the provider endpoints (primarily for testing
// against a stub provider).
func WithBaseURLs(authBaseURL, apiBaseURL string) Option {
	return func(a *API) {
		a.authBaseURL = authBaseURL
		a.apiBaseURL = apiBaseURL
	}
}

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) {
		a.httpClient = c
	}
}

// New builds the GitHub client. A malformed redirect URI fails here, at
// construction, not at request time.
func New(cfg config.GitHubConfig, options ...Option) (*API, error) {
	api := &API{
		clientID:     cfg.GetGitHubClientID(),
		clientSecret: cfg.GetGitHubClientSecret(),
		redirectURI:  cfg.GetGitHubRedirectURI(),
		scopes:       cfg.GetGitHubScopes(),
		authBaseURL:  defaultAuthBaseURL,
		apiBaseURL:   defaultAPIBaseURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range options {
		opt(api)
	}

	if api.clientID == "" {
		return nil, fmt.Errorf("[github.New] client id is required")
	}
	if _, err := url.Parse(api.redirectURI); err != nil {
		return nil, fmt.Errorf("[github.New] invalid redirect URI %q: %w", api.redirectURI, err)
	}

	return api, nil
}

// LoginURL builds the GitHub authorization redirect. The handshake session
// id and device type are round-tripped through the redirect URI's query
// component so the callback handler can recover them, while the CSRF state
// rides as a top-level parameter.
func (a *API) LoginURL(state, sessionID, deviceType string) (string, error) {
	redirectURL, err := url.Parse(a.redirectURI)
	if err != nil {
		return "", errors.Wrapf(err, "[github LoginURL] parsing redirect URI")
	}
	q := redirectURL.Query()
	q.Set("session_id", sessionID)
	q.Set("device_type", deviceType)
	redirectURL.RawQuery = q.Encode()

	loginURL, err := url.Parse(a.authBaseURL + "/authorize")
	if err != nil {
		return "", errors.Wrapf(err, "[github LoginURL] parsing authorize URL")
	}
	q = loginURL.Query()
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", redirectURL.String())
	q.Set("state", state)
	q.Set("scope", a.scopes)
	loginURL.RawQuery = q.Encode()

	return loginURL.String(), nil
}

// accessTokenURL builds the token-exchange request URL embedding the client
// credentials and the one-time authorization code.
func (a *API) accessTokenURL(code string) string {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("client_secret", a.clientSecret)
	q.Set("code", code)
	return a.authBaseURL + "/access_token?" + q.Encode()
}

// ExchangeCode redeems the one-time authorization code for a bearer token.
// A provider rejection carries GitHub's status code verbatim with a generic
// message; the provider body is logged server-side only.
func (a *API) ExchangeCode(ctx context.Context, code string) (AuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.accessTokenURL(code), nil)
	if err != nil {
		return AuthToken{}, errors.Wrapf(err, "[github ExchangeCode] building request")
	}
	req.Header.Set("Accept", "application/json")
	a.setCommonHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("GitHub token exchange transport failure")
		return AuthToken{}, errors.NewResponse(http.StatusBadGateway, "Failed to authenticate with GitHub.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Bytes("body", body).Msg("GitHub rejected token exchange")
		return AuthToken{}, errors.NewResponse(resp.StatusCode, "Failed to authenticate with GitHub.")
	}

	var token AuthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return AuthToken{}, errors.Wrapf(err, "[github ExchangeCode] decoding token response")
	}
	if token.AccessToken.Reveal() == "" {
		// GitHub reports bad codes with a 200 and an error JSON body.
		log.Error().Msg("GitHub token exchange returned no access token")
		return AuthToken{}, errors.Unauthorized("Failed to authenticate with GitHub.")
	}

	return token, nil
}

// FetchProfile retrieves the authenticated user's account record.
func (a *API) FetchProfile(ctx context.Context, token AuthToken) (UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/user", nil)
	if err != nil {
		return UserProfile{}, errors.Wrapf(err, "[github FetchProfile] building request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", fmt.Sprintf("%s %s", token.TokenType, token.AccessToken.Reveal()))
	a.setCommonHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("GitHub profile fetch transport failure")
		return UserProfile{}, errors.NewResponse(http.StatusBadGateway, "Failed to retrieve user's data from GitHub.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Bytes("body", body).Msg("GitHub rejected profile fetch")
		return UserProfile{}, errors.NewResponse(resp.StatusCode, "Failed to retrieve user's data from GitHub.")
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return UserProfile{}, errors.Wrapf(err, "[github FetchProfile] decoding profile response")
	}

	return profile, nil
}

func (a *API) setCommonHeaders(req *http.Request) {
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", userAgent)
}
