package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oauthcore-oss/oauthcore/oautherr"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeError renders err as the RFC 6749 §5.2 JSON error body at the
// status code the error kind maps to. Non-oautherr errors are reported
// as a bare server_error without their message, so internal details
// never reach the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := oautherr.StatusCode(err)

	var oe *oautherr.Error
	body := errorBody{Error: string(oautherr.ServerError)}
	if errors.As(err, &oe) {
		body.Error = string(oe.Kind)
		body.ErrorDescription = oe.Description
		if oe.Err != nil {
			s.logger.ErrorContext(r.Context(), "request failed", "kind", oe.Kind, "cause", oe.Err)
		}
	} else {
		s.logger.ErrorContext(r.Context(), "request failed with an unclassified error", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
