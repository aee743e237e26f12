package server

import (
	"encoding/json"
	"net/http"

	"github.com/oauthcore-oss/oauthcore/discovery"
)

// handleDiscovery implements RFC 8414 §3: a cacheable metadata document
// reflecting exactly the grants, scopes, and PKCE methods this
// deployment actually supports.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	methods := []string{"S256"}
	if s.cfg.AllowPlainPKCE {
		methods = append(methods, "plain")
	}

	grantTypes := enabledGrantNames(s.cfg.EnabledGrants)

	doc := discovery.Build(discovery.Config{
		Issuer:                   s.issuerURL.String(),
		EnabledGrantTypes:        grantTypes,
		SupportedScopes:          s.cfg.SupportedScopes,
		CodeChallengeMethods:     methods,
		TokenEndpointAuthMethods: []string{"client_secret_basic", "client_secret_post"},
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_ = json.NewEncoder(w).Encode(doc)
}
