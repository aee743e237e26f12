package token

import (
	"context"
	"testing"

	"github.com/oauthcore-oss/oauthcore/storage/memory"
)

func TestMintOpaqueAccessOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{Issuer: "https://auth.example.com", OpaqueAccess: true})

	resp, err := iss.Mint(ctx, MintInput{ClientID: "client-1", UserID: "user-1", Scopes: []string{"read"}})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RefreshToken != "" {
		t.Fatalf("expected no refresh token when IssueRefresh is false")
	}
}

func TestMintWithRefresh(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{Issuer: "https://auth.example.com", OpaqueAccess: true})

	resp, err := iss.Mint(ctx, MintInput{ClientID: "client-1", UserID: "user-1", Scopes: []string{"read"}, IssueRefresh: true})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected a refresh token")
	}

	access, err := store.GetToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("GetToken(access): %v", err)
	}
	if access.ParentRefreshToken != resp.RefreshToken {
		t.Errorf("expected access token's ParentRefreshToken to reference the minted refresh token")
	}

	refresh, err := store.GetToken(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("GetToken(refresh): %v", err)
	}
	if refresh.ParentAccessToken != resp.AccessToken {
		t.Errorf("expected refresh token's ParentAccessToken to reference the sibling access token")
	}
}

func TestMintSignedJWT(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{Issuer: "https://auth.example.com", SigningSecret: []byte("a-sufficiently-long-signing-secret")})

	resp, err := iss.Mint(ctx, MintInput{ClientID: "client-1", Scopes: []string{"read"}})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected a signed access token")
	}
}
