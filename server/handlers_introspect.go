package server

import (
	"encoding/json"
	"net/http"

	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/oautherr"
)

// handleIntrospect implements the RFC 7662 §2 introspection endpoint.
// Client authentication is required; the introspected token itself
// needn't belong to the authenticating client, matching RFC 7662's
// "protected resource" model rather than a strict ownership check.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
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

	result, err := s.introspect.Introspect(r.Context(), tok, r.FormValue("token_type_hint"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.emitter.Publish(r.Context(), event.TypeTokenValidated, "", clientID, map[string]string{"active": boolString(result.Active)})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(result)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
