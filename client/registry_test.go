package client

import (
	"context"
	"testing"

	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/storage/memory"
)

func newRegistry() *Registry {
	return New(memory.New(nil))
}

func TestRegisterAndAuthenticateConfidential(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()

	c, secret, err := r.Register(ctx, RegisterInput{
		Name: "test-app", Type: storage.ClientConfidential,
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   []string{"authorization_code"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if secret == "" {
		t.Fatalf("expected a plaintext secret for a confidential client")
	}

	if _, err := r.Authenticate(ctx, c.ID, secret); err != nil {
		t.Fatalf("Authenticate with correct secret: %v", err)
	}
	if _, err := r.Authenticate(ctx, c.ID, "wrong-secret"); err == nil {
		t.Fatalf("expected Authenticate with wrong secret to fail")
	}
}

func TestRegisterPublicClientNeedsNoSecret(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()

	c, secret, err := r.Register(ctx, RegisterInput{
		Name: "spa", Type: storage.ClientPublic,
		RedirectURIs: []string{"https://spa.example.com/callback"},
		GrantTypes:   []string{"authorization_code"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if secret != "" {
		t.Fatalf("expected no secret to be minted for a public client")
	}

	if _, err := r.Authenticate(ctx, c.ID, ""); err != nil {
		t.Fatalf("Authenticate public client with empty secret: %v", err)
	}
}

func TestAssertRedirectURI(t *testing.T) {
	single := storage.Client{RedirectURIs: []string{"https://a.example.com/cb"}}
	if _, err := AssertRedirectURI(single, ""); err != nil {
		t.Errorf("expected empty redirect_uri to default for single-URI client: %v", err)
	}

	multi := storage.Client{RedirectURIs: []string{"https://a.example.com/cb", "https://b.example.com/cb"}}
	if _, err := AssertRedirectURI(multi, ""); err == nil {
		t.Errorf("expected empty redirect_uri to be rejected for multi-URI client")
	}
	if _, err := AssertRedirectURI(multi, "https://evil.example.com/cb"); err == nil {
		t.Errorf("expected unregistered redirect_uri to be rejected")
	}
	if _, err := AssertRedirectURI(multi, "https://b.example.com/cb"); err != nil {
		t.Errorf("expected registered redirect_uri to be accepted: %v", err)
	}
}

func TestAssertGrantAllowed(t *testing.T) {
	c := storage.Client{GrantTypes: []string{"authorization_code", "refresh_token"}}
	if err := AssertGrantAllowed(c, "authorization_code"); err != nil {
		t.Errorf("expected authorization_code to be allowed: %v", err)
	}
	if err := AssertGrantAllowed(c, "client_credentials"); err == nil {
		t.Errorf("expected client_credentials to be rejected")
	}
}

func TestReduceScope(t *testing.T) {
	c := storage.Client{AllowedScopes: []string{"read", "write"}, DefaultScope: "read"}

	got, err := ReduceScope(c, nil)
	if err != nil || len(got) != 1 || got[0] != "read" {
		t.Errorf("expected empty request to fall back to default scope, got %v, err %v", got, err)
	}

	got, err = ReduceScope(c, []string{"read", "write"})
	if err != nil || len(got) != 2 {
		t.Errorf("expected subset of allowed scopes to pass through, got %v, err %v", got, err)
	}

	if _, err := ReduceScope(c, []string{"admin"}); err == nil {
		t.Errorf("expected disallowed scope to be rejected")
	}

	got, err = ReduceScope(c, []string{"read", "admin"})
	if err != nil || len(got) != 1 || got[0] != "read" {
		t.Errorf("expected partial overlap to grant only the intersection, got %v, err %v", got, err)
	}
}
