package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// UserHandler returns the identity resolved by the session gate.
func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			renderJSON(w, http.StatusInternalServerError, errorMessage{Detail: "Something went wrong."})
			return
		}

		renderJSON(w, http.StatusOK, publicUser{
			ID:        session.UserID,
			Login:     session.UserLogin,
			Name:      session.UserName,
			AvatarURL: session.UserAvatarURL,
		})
	}
}

// HealthzHandler probes the registered store dependencies.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var failing []string
		for name, ping := range s.healthChecks {
			if err := ping(ctx); err != nil {
				log.Error().Err(err).Str("dependency", name).Msg("health check failed")
				failing = append(failing, name)
			}
		}
		if len(failing) > 0 {
			sort.Strings(failing)
			renderJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "degraded",
				"failing": failing,
			})
			return
		}
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
