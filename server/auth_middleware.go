package server

import (
	"context"
	"net/http"

	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/evaultlabs/evault-server/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the resolved session for the in-flight request
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the session attached by RequireSessionAuth.
// Downstream handlers read this instead of re-fetching from the store.
func SessionFromContext(ctx context.Context) (sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(sessions.Session)
	return session, ok
}

// RequireSessionAuth is the gate in front of every protected route: it
// resolves the session cookie against the store and attaches the identity to
// the request context, or rejects the request. It fails closed; no session
// is ever fabricated.
func (s *Server) RequireSessionAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieAccessToken)
			if err != nil || cookie.Value == "" {
				renderError(w, errors.Forbidden("Missing credentials."))
				return
			}

			session, err := s.sessions.GetSession(r.Context(), cookie.Value)
			if errors.Is(err, errors.ErrSessionExpired) {
				renderError(w, errors.Forbidden("Session expired."))
				return
			}
			if err != nil {
				renderError(w, err)
				return
			}

			if s.config.GetRenewSessionOnUse() {
				if err := s.sessions.RenewSession(r.Context(), session.SessionID, s.config.GetSessionTTL()); err != nil {
					// The record can expire between resolve and renew; the
					// resolved copy is still valid for this request.
					log.Warn().Err(err).Msg("failed to renew session TTL")
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}
