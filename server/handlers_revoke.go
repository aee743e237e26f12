package server

import (
	"net/http"

	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/oautherr"
)

// handleRevoke implements the RFC 7009 §2 revocation endpoint. An unknown
// or already-invalid token is not reported as an error: once the client
// itself has authenticated, the endpoint returns 200 for any non-empty
// token parameter. An empty token parameter is invalid_request.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "malformed request body"))
		return
	}

	clientID, clientSecret, err := extractClientCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.clients.Authenticate(r.Context(), clientID, clientSecret); err != nil {
		s.writeError(w, r, err)
		return
	}

	tok := r.FormValue("token")
	if tok == "" {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "token is required"))
		return
	}

	engine := s.revokeEngine()
	if err := engine.Revoke(r.Context(), tok, clientID, r.FormValue("token_type_hint")); err != nil {
		s.writeError(w, r, oautherr.Wrap(oautherr.ServerError, "revocation failed", err))
		return
	}
	s.emitter.Publish(r.Context(), event.TypeTokenRevoked, "", clientID, nil)

	w.WriteHeader(http.StatusOK)
}
