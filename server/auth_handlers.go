package server

import (
	"net/http"

	"github.com/evaultlabs/evault-server/auth"
	"github.com/evaultlabs/evault-server/internal/errors"
)

// publicUser is the identity shape served to the client; it never carries
// the provider token.
type publicUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubAuthHandler starts the handshake: it persists the handshake record
// and redirects the browser to GitHub's authorization page.
func (s *Server) GitHubAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceType := r.URL.Query().Get("device_type")
		if deviceType == "" {
			renderError(w, errors.NewResponse(http.StatusBadRequest, "device_type is required."))
			return
		}

		loginURL, err := s.auth.Begin(r.Context(), deviceType)
		if err != nil {
			renderError(w, err)
			return
		}

		http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
	}
}

// GitHubAuthTokenHandler finishes the handshake: GitHub redirects here with
// the one-time code and the echoed state. On success the issued session id
// is set as a cookie and the public profile is returned.
func (s *Server) GitHubAuthTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := auth.CallbackParams{
			SessionID:  q.Get("session_id"),
			DeviceType: q.Get("device_type"),
			Code:       q.Get("code"),
			State:      q.Get("state"),
		}
		if params.SessionID == "" || params.Code == "" || params.State == "" {
			renderError(w, errors.Unauthorized("Invalid credentials."))
			return
		}

		session, err := s.auth.Complete(r.Context(), params)
		if err != nil {
			renderError(w, err)
			return
		}

		s.setSessionCookie(w, r, session.SessionID)
		renderJSON(w, http.StatusOK, publicUser{
			ID:        session.UserID,
			Login:     session.UserLogin,
			Name:      session.UserName,
			AvatarURL: session.UserAvatarURL,
		})
	}
}

// GitHubAuthLogoutHandler revokes the current session, if any, and clears
// the cookie. Logging out twice is fine.
func (s *Server) GitHubAuthLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(cookieAccessToken); err == nil && cookie.Value != "" {
			if err := s.sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
				renderError(w, err)
				return
			}
		}

		s.clearSessionCookie(w, r)
		renderJSON(w, http.StatusOK, map[string]string{"detail": "Logged out."})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetSessionTTL().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
