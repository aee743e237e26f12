package discovery

import "testing"

func TestBuild(t *testing.T) {
	doc := Build(Config{
		Issuer:                   "https://auth.example.com",
		EnabledGrantTypes:        []string{"authorization_code", "client_credentials"},
		SupportedScopes:          []string{"read", "write"},
		CodeChallengeMethods:     []string{"S256"},
		TokenEndpointAuthMethods: []string{"client_secret_basic"},
	})

	if doc.Issuer != "https://auth.example.com" {
		t.Errorf("unexpected issuer %q", doc.Issuer)
	}
	if doc.TokenEndpoint != "https://auth.example.com/token" {
		t.Errorf("unexpected token_endpoint %q", doc.TokenEndpoint)
	}
	if len(doc.GrantTypesSupported) != 2 {
		t.Errorf("unexpected grant_types_supported %v", doc.GrantTypesSupported)
	}
	if len(doc.ResponseTypesSupported) != 1 || doc.ResponseTypesSupported[0] != "code" {
		t.Errorf("unexpected response_types_supported %v", doc.ResponseTypesSupported)
	}
	if len(doc.SubjectTypesSupported) != 1 || doc.SubjectTypesSupported[0] != "public" {
		t.Errorf("unexpected subject_types_supported %v", doc.SubjectTypesSupported)
	}
}
