package server

import (
	"encoding/json"
	"net/http"

	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/grant"
	"github.com/oauthcore-oss/oauthcore/oautherr"
)

// extractClientCredentials implements RFC 6749 §2.3.1: client_secret_basic
// via the Authorization header, client_secret_post via form fields.
// Presenting both is a client error, not a preference to resolve.
func extractClientCredentials(r *http.Request) (id, secret string, err error) {
	basicID, basicSecret, hasBasic := r.BasicAuth()
	formID, formSecret := r.FormValue("client_id"), r.FormValue("client_secret")
	hasForm := formID != ""

	switch {
	case hasBasic && hasForm:
		return "", "", oautherr.New(oautherr.InvalidRequest, "client credentials supplied via both Authorization header and form fields")
	case hasBasic:
		return basicID, basicSecret, nil
	case hasForm:
		return formID, formSecret, nil
	default:
		return "", "", oautherr.New(oautherr.InvalidClient, "no client credentials supplied")
	}
}

// handleToken implements the RFC 6749 §3.2 token endpoint, dispatching
// every supported grant type through grant.Dispatcher.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "malformed request body"))
		return
	}

	clientID, clientSecret, err := extractClientCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req := grant.TokenRequest{
		GrantType:    r.FormValue("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		CodeVerifier: r.FormValue("code_verifier"),
		RefreshToken: r.FormValue("refresh_token"),
		Scope:        r.FormValue("scope"),
		Username:     r.FormValue("username"),
		Password:     r.FormValue("password"),
	}
	if req.GrantType == "" {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "grant_type is required"))
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.emitter.Publish(r.Context(), event.TypeTokenIssued, "", clientID, map[string]string{"grant_type": req.GrantType})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	_ = json.NewEncoder(w).Encode(resp)
}
