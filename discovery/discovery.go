// Package discovery builds the RFC 8414 authorization server metadata
// document exposed at /.well-known/oauth-authorization-server.
package discovery

// Config describes the deployment-specific facts the metadata document
// is built from.
type Config struct {
	Issuer                   string
	EnabledGrantTypes        []string
	SupportedScopes          []string
	CodeChallengeMethods     []string
	TokenEndpointAuthMethods []string
}

// Document is the RFC 8414 §2 metadata shape. Fields this deployment
// doesn't populate are omitted via omitempty rather than sent as
// zero-valued placeholders, per RFC 8414's "OPTIONAL" framing for most
// of the document.
type Document struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint,omitempty"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	RegistrationEndpoint              string   `json:"registration_endpoint,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
}

// Build constructs the metadata document for cfg. The five endpoint
// paths are fixed: a conformant client has no reason to expect the
// authorization core to expose them anywhere else.
func Build(cfg Config) Document {
	return Document{
		Issuer:                            cfg.Issuer,
		AuthorizationEndpoint:             cfg.Issuer + "/authorize",
		TokenEndpoint:                     cfg.Issuer + "/token",
		IntrospectionEndpoint:             cfg.Issuer + "/introspect",
		RevocationEndpoint:                cfg.Issuer + "/revoke",
		RegistrationEndpoint:              cfg.Issuer + "/register",
		ScopesSupported:                   cfg.SupportedScopes,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               cfg.EnabledGrantTypes,
		SubjectTypesSupported:             []string{"public"},
		CodeChallengeMethodsSupported:     cfg.CodeChallengeMethods,
		TokenEndpointAuthMethodsSupported: cfg.TokenEndpointAuthMethods,
	}
}
