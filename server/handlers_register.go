package server

import (
	"encoding/json"
	"net/http"

	"github.com/oauthcore-oss/oauthcore/client"
	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
)

type registerRequest struct {
	Name                    string   `json:"client_name"`
	Type                    string   `json:"client_type"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	AllowedScopes           []string `json:"allowed_scopes"`
	DefaultScope            string   `json:"default_scope"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

type registerResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// requiresRedirectURI reports whether grantTypes includes a grant that
// depends on the authorization endpoint's redirect back to the client,
// e.g. authorization_code. client_credentials has no such dependency.
func requiresRedirectURI(grantTypes []string) bool {
	for _, g := range grantTypes {
		if g == "authorization_code" {
			return true
		}
	}
	return false
}

// handleRegister is a minimal dynamic client registration endpoint.
// Unlike RFC 7591, which this deployment does not claim full conformance
// with, it requires no initial access token: registration policy
// (who may self-register, which scopes are grantable) is an
// administrative concern left to a reverse proxy or admin tool.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "malformed JSON body"))
		return
	}
	if len(req.RedirectURIs) == 0 && requiresRedirectURI(req.GrantTypes) {
		s.writeError(w, r, oautherr.New(oautherr.InvalidRequest, "redirect_uris is required for this grant_types set"))
		return
	}

	clientType := storage.ClientType(req.Type)
	if clientType != storage.ClientPublic && clientType != storage.ClientConfidential {
		clientType = storage.ClientConfidential
	}

	authMethod := storage.AuthMethod(req.TokenEndpointAuthMethod)
	switch authMethod {
	case storage.AuthMethodBasic, storage.AuthMethodPost, storage.AuthMethodNone:
	default:
		authMethod = storage.AuthMethodBasic
		if clientType == storage.ClientPublic {
			authMethod = storage.AuthMethodNone
		}
	}

	c, secret, err := s.clients.Register(r.Context(), client.RegisterInput{
		Name: req.Name, Type: clientType, RedirectURIs: req.RedirectURIs, GrantTypes: req.GrantTypes,
		AllowedScopes: req.AllowedScopes, DefaultScope: req.DefaultScope, TokenEndpointAuthMethod: authMethod,
	})
	if err != nil {
		s.writeError(w, r, oautherr.Wrap(oautherr.ServerError, "client registration failed", err))
		return
	}
	s.emitter.Publish(r.Context(), event.TypeClientRegistered, "", c.ID, nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(registerResponse{
		ClientID: c.ID, ClientSecret: secret, ClientName: c.Name,
		RedirectURIs: c.RedirectURIs, GrantTypes: c.GrantTypes,
		TokenEndpointAuthMethod: string(c.TokenEndpointAuthMethod),
	})
}
