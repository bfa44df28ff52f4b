package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/evaultlabs/evault-server/auth"
	"github.com/evaultlabs/evault-server/github"
	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/server"
	"github.com/evaultlabs/evault-server/sessions"
	fakeuserrepo "github.com/evaultlabs/evault-server/users/repofake"
	"github.com/stretchr/testify/require"
)

// testConfig satisfies config.Config with fixed values suitable for tests
type testConfig struct {
	config.Cors
	renewOnUse bool
}

func (testConfig) GetPort() string { return ":0" }
func (testConfig) GetAppName() string { return "evault-test" }
func (testConfig) GetEnv() string { return "TEST" }
func (testConfig) GetGitHubClientID() string { return "client-id" }
func (testConfig) GetGitHubClientSecret() string { return "client-secret" }
func (testConfig) GetGitHubRedirectURI() string { return "http://localhost:5173/auth/github" }
func (testConfig) GetGitHubScopes() string { return "repo read:user" }
func (testConfig) GetHandshakeTTL() time.Duration { return 2 * time.Minute }
func (testConfig) GetSessionTTL() time.Duration { return 5 * time.Minute }
func (c testConfig) GetRenewSessionOnUse() bool { return c.renewOnUse }
func (testConfig) GetRedisAddr() string { return "" }
func (testConfig) GetPostgresURL() string { return "" }

type testFixture struct {
	gateway     *httptest.Server
	provider    *httptest.Server
	sessionRepo *sessions.InMemoryRepo
	userRepo    *fakeuserrepo.FakeUserRepo
	client      *http.Client
}

// setupTestFixture wires the full gateway against a stubbed GitHub that
// accepts the code "good-code" for user octocat (id 4221).
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/access_token":
			if r.URL.Query().Get("code") != "good-code" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"bad_verification_code","provider_internal":"raw provider body"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"gho_e2e","token_type":"bearer","scope":"repo read:user"}`))
		case "/user":
			if r.Header.Get("Authorization") != "bearer gho_e2e" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":4221,"login":"octocat","name":"The Octocat","email":"octocat@example.com","avatar_url":"https://avatars.githubusercontent.com/u/4221"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(provider.Close)

	cfg := testConfig{}
	githubAPI, err := github.New(cfg, github.WithBaseURLs(provider.URL, provider.URL))
	require.NoError(t, err)

	sessionRepo := sessions.NewInMemoryRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo()

	authService, err := auth.NewService(cfg, githubAPI, sessionRepo, userRepo)
	require.NoError(t, err)

	srv, err := server.New(cfg, authService, sessionRepo, userRepo)
	require.NoError(t, err)

	gateway := httptest.NewServer(srv)
	t.Cleanup(gateway.Close)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // capture the provider redirect
		},
	}

	return &testFixture{
		gateway:     gateway,
		provider:    provider,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		client:      client,
	}
}

// startHandshake hits the auth-start endpoint and returns the state and
// handshake id embedded in the provider redirect.
func (f *testFixture) startHandshake(t *testing.T, deviceType string) (string, string) {
	t.Helper()

	resp, err := f.client.Get(f.gateway.URL + server.RouteGitHubAuth + "?device_type=" + deviceType)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	redirect, err := url.Parse(location.Query().Get("redirect_uri"))
	require.NoError(t, err)
	handshakeID := redirect.Query().Get("session_id")
	require.NotEmpty(t, handshakeID)

	return state, handshakeID
}

func (f *testFixture) callbackURL(handshakeID, code, state string) string {
	q := url.Values{}
	q.Set("session_id", handshakeID)
	q.Set("device_type", "web")
	q.Set("code", code)
	q.Set("state", state)
	return f.gateway.URL + server.RouteGitHubAuthToken + "?" + q.Encode()
}

func detailOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Detail
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "evault_access_token" {
			return c
		}
	}
	return nil
}

func TestHandshake_FullFlow(t *testing.T) {
	f := setupTestFixture(t)

	state, handshakeID := f.startHandshake(t, "web")

	resp, err := f.client.Get(f.callbackURL(handshakeID, "good-code", state))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie, "callback must set the session cookie")
	require.Equal(t, "/", cookie.Path)
	require.NotEqual(t, handshakeID, cookie.Value, "session credential must differ from the handshake id")
	require.NotContains(t, cookie.Value, "gho_e2e", "cookie must not carry the bearer token")

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	require.Equal(t, int64(4221), profile.ID)
	require.Equal(t, "octocat", profile.Login)

	// a follow-up protected request resolves to the same identity
	req, err := http.NewRequest(http.MethodGet, f.gateway.URL+server.RouteUser, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)

	userResp, err := f.client.Do(req)
	require.NoError(t, err)
	defer userResp.Body.Close()
	require.Equal(t, http.StatusOK, userResp.StatusCode)

	var user struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(userResp.Body).Decode(&user))
	require.Equal(t, int64(4221), user.ID)
}

func TestHandshake_CSRFMismatch(t *testing.T) {
	f := setupTestFixture(t)

	state, handshakeID := f.startHandshake(t, "web")

	resp, err := f.client.Get(f.callbackURL(handshakeID, "good-code", "wrong-"+state))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Nil(t, sessionCookie(resp), "no session may be issued on CSRF mismatch")

	// the handshake was consumed: replaying with the correct state fails too
	replay, err := f.client.Get(f.callbackURL(handshakeID, "good-code", state))
	require.NoError(t, err)
	defer replay.Body.Close()
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestHandshake_ExpiredOrUnknown(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := f.client.Get(f.callbackURL("never-issued", "good-code", "some-state"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshake_ProviderRejection(t *testing.T) {
	f := setupTestFixture(t)

	state, handshakeID := f.startHandshake(t, "web")

	resp, err := f.client.Get(f.callbackURL(handshakeID, "bad-code", state))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEqual(t, http.StatusOK, resp.StatusCode)

	detail := detailOf(t, resp)
	require.NotContains(t, detail, "raw provider body", "provider response body must not reach the client")
	require.Nil(t, sessionCookie(resp))
}

func TestAuthStart_MissingDeviceType(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := f.client.Get(f.gateway.URL + server.RouteGitHubAuth)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionGate(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		f := setupTestFixture(t)

		resp, err := f.client.Get(f.gateway.URL + server.RouteUser)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "Missing credentials.", detailOf(t, resp))
	})

	t.Run("invalid session is distinct from missing credentials", func(t *testing.T) {
		f := setupTestFixture(t)

		req, err := http.NewRequest(http.MethodGet, f.gateway.URL+server.RouteUser, nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "evault_access_token", Value: "expired-or-bogus"})

		resp, err := f.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "Session expired.", detailOf(t, resp))
	})
}

// fakeClock is safe to advance from the test goroutine while the in-memory
// repo reads it from handler goroutines.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSessionGate_RenewOnUse(t *testing.T) {
	setup := func(t *testing.T, renewOnUse bool) (*httptest.Server, *sessions.InMemoryRepo, *fakeClock) {
		t.Helper()

		clock := &fakeClock{t: time.Now()}
		sessionRepo := sessions.NewInMemoryRepo(sessions.WithNowTime(clock.Now))
		userRepo := fakeuserrepo.NewFakeUserRepo()
		cfg := testConfig{renewOnUse: renewOnUse}

		githubAPI, err := github.New(cfg)
		require.NoError(t, err)
		authService, err := auth.NewService(cfg, githubAPI, sessionRepo, userRepo)
		require.NoError(t, err)
		srv, err := server.New(cfg, authService, sessionRepo, userRepo)
		require.NoError(t, err)

		gateway := httptest.NewServer(srv)
		t.Cleanup(gateway.Close)
		return gateway, sessionRepo, clock
	}

	seedSession := func(t *testing.T, repo *sessions.InMemoryRepo) *http.Cookie {
		t.Helper()
		err := repo.CreateSession(context.Background(), sessions.Session{
			SessionID: "sess-policy",
			UserID:    7,
			UserLogin: "octocat",
			Token: github.AuthToken{
				AccessToken: github.AccessToken("gho_policy"),
				TokenType:   "bearer",
			},
		}, 5*time.Minute)
		require.NoError(t, err)
		return &http.Cookie{Name: "evault_access_token", Value: "sess-policy"}
	}

	fetchUser := func(t *testing.T, gateway *httptest.Server, cookie *http.Cookie) int {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, gateway.URL+server.RouteUser, nil)
		require.NoError(t, err)
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("fixed window logs out an active user", func(t *testing.T) {
		gateway, repo, clock := setup(t, false)
		cookie := seedSession(t, repo)

		require.Equal(t, http.StatusOK, fetchUser(t, gateway, cookie))

		clock.Advance(4 * time.Minute)
		require.Equal(t, http.StatusOK, fetchUser(t, gateway, cookie))

		clock.Advance(2 * time.Minute)
		require.Equal(t, http.StatusForbidden, fetchUser(t, gateway, cookie))
	})

	t.Run("sliding window keeps an active user logged in", func(t *testing.T) {
		gateway, repo, clock := setup(t, true)
		cookie := seedSession(t, repo)

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, fetchUser(t, gateway, cookie))
			clock.Advance(4 * time.Minute)
		}

		// idle past the window still expires
		clock.Advance(2 * time.Minute)
		require.Equal(t, http.StatusForbidden, fetchUser(t, gateway, cookie))
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)

	state, handshakeID := f.startHandshake(t, "web")
	resp, err := f.client.Get(f.callbackURL(handshakeID, "good-code", state))
	require.NoError(t, err)
	resp.Body.Close()
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	req, err := http.NewRequest(http.MethodGet, f.gateway.URL+server.RouteGitHubAuthLogout, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)

	logoutResp, err := f.client.Do(req)
	require.NoError(t, err)
	defer logoutResp.Body.Close()
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	// the revoked session no longer resolves
	userReq, err := http.NewRequest(http.MethodGet, f.gateway.URL+server.RouteUser, nil)
	require.NoError(t, err)
	userReq.AddCookie(cookie)

	userResp, err := f.client.Do(userReq)
	require.NoError(t, err)
	defer userResp.Body.Close()
	require.Equal(t, http.StatusForbidden, userResp.StatusCode)
	require.Equal(t, "Session expired.", detailOf(t, userResp))
}

func TestHealthz(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := f.client.Get(f.gateway.URL + server.RouteHealthz)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
