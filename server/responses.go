package server

import (
	"encoding/json"
	"net/http"

	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

type errorMessage struct {
	Detail string `json:"detail"`
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// renderError maps an error to the client-facing response. ResponseErrors
// render verbatim with their carried status; anything else is an internal
// failure logged in full and rendered as a generic 500, so raw error text
// never reaches the client.
func renderError(w http.ResponseWriter, err error) {
	if respErr, ok := errors.AsResponse(err); ok {
		renderJSON(w, respErr.Status, errorMessage{Detail: respErr.Detail})
		return
	}

	log.Error().Err(err).Msg("something went wrong")
	renderJSON(w, http.StatusInternalServerError, errorMessage{Detail: "Something went wrong."})
}
