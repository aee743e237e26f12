package grant

import (
	"context"
	"errors"
	"testing"

	"github.com/oauthcore-oss/oauthcore/authcode"
	"github.com/oauthcore-oss/oauthcore/client"
	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/storage/memory"
	"github.com/oauthcore-oss/oauthcore/token"
)

func setup(t *testing.T, enabled EnabledGrants) (*Dispatcher, storage.Storage, storage.Client, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.New(nil)
	registry := client.New(store)

	c, secret, err := registry.Register(ctx, client.RegisterInput{
		Name: "test-client", Type: storage.ClientConfidential,
		RedirectURIs:  []string{"https://app/cb"},
		GrantTypes:    []string{GrantAuthorizationCode, GrantClientCredentials, GrantRefreshToken, GrantPassword},
		AllowedScopes: []string{"read", "write"}, DefaultScope: "read",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	codes := authcode.New(store, authcode.Config{})
	tokens := token.New(store, token.Config{Issuer: "https://auth.example.com", OpaqueAccess: true})
	d := New(store, registry, codes, tokens, enabled)
	return d, store, c, secret
}

func TestDispatchClientCredentials(t *testing.T) {
	ctx := context.Background()
	d, _, c, secret := setup(t, DefaultEnabledGrants())

	resp, err := d.Dispatch(ctx, TokenRequest{GrantType: GrantClientCredentials, ClientID: c.ID, ClientSecret: secret, Scope: "read"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDispatchAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	d, store, c, secret := setup(t, DefaultEnabledGrants())

	codes := authcode.New(store, authcode.Config{})
	code, err := codes.Issue(ctx, authcode.IssueInput{ClientID: c.ID, UserID: "user-1", RedirectURI: "https://app/cb", Scopes: []string{"read"}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	resp, err := d.Dispatch(ctx, TokenRequest{
		GrantType: GrantAuthorizationCode, ClientID: c.ID, ClientSecret: secret,
		Code: code, RedirectURI: "https://app/cb",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected both access and refresh tokens: %+v", resp)
	}
}

func TestDispatchDisabledGrantType(t *testing.T) {
	ctx := context.Background()
	d, _, c, secret := setup(t, EnabledGrants{ClientCredentials: true})

	_, err := d.Dispatch(ctx, TokenRequest{GrantType: GrantPassword, ClientID: c.ID, ClientSecret: secret})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.UnsupportedGrantType {
		t.Fatalf("expected unsupported_grant_type, got %v", err)
	}
}

func TestDispatchPasswordGrant(t *testing.T) {
	ctx := context.Background()
	d, store, c, secret := setup(t, EnabledGrants{Password: true})

	hash, err := cryptoutil.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := store.CreateUser(ctx, storage.User{ID: "user-1", Username: "alice", PasswordHash: hash}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	resp, err := d.Dispatch(ctx, TokenRequest{
		GrantType: GrantPassword, ClientID: c.ID, ClientSecret: secret,
		Username: "alice", Password: "hunter2", Scope: "read",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected an access token")
	}

	_, err = d.Dispatch(ctx, TokenRequest{
		GrantType: GrantPassword, ClientID: c.ID, ClientSecret: secret,
		Username: "alice", Password: "wrong-password",
	})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidGrant {
		t.Fatalf("expected invalid_grant for wrong password, got %v", err)
	}
}

func TestDispatchRejectsBadClientSecret(t *testing.T) {
	ctx := context.Background()
	d, _, c, _ := setup(t, DefaultEnabledGrants())

	_, err := d.Dispatch(ctx, TokenRequest{GrantType: GrantClientCredentials, ClientID: c.ID, ClientSecret: "nope"})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidClient {
		t.Fatalf("expected invalid_client, got %v", err)
	}
}

func TestDispatchRefreshToken(t *testing.T) {
	ctx := context.Background()
	d, store, c, secret := setup(t, DefaultEnabledGrants())

	tokens := token.New(store, token.Config{Issuer: "https://auth.example.com", OpaqueAccess: true})
	minted, err := tokens.Mint(ctx, token.MintInput{ClientID: c.ID, Scopes: []string{"read"}, IssueRefresh: true})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	resp, err := d.Dispatch(ctx, TokenRequest{GrantType: GrantRefreshToken, ClientID: c.ID, ClientSecret: secret, RefreshToken: minted.RefreshToken})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
}
