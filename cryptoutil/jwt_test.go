package cryptoutil

import (
	"testing"
	"time"
)

func TestSignAndVerifyAccessToken(t *testing.T) {
	secret := []byte("a-sufficiently-long-signing-secret")
	now := time.Now()
	claims := Claims{
		Issuer:    "https://auth.example.com",
		Subject:   "user-1",
		ClientID:  "client-1",
		Scope:     "read write",
		JTI:       "jti-1",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}

	token, err := SignAccessToken(claims, secret)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	got, err := VerifyAccessToken(token, secret, "https://auth.example.com", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if got.Subject != "user-1" || got.ClientID != "client-1" {
		t.Fatalf("unexpected claims after round trip: %+v", got)
	}
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	secret := []byte("a-sufficiently-long-signing-secret")
	now := time.Now()
	claims := Claims{
		Issuer:    "https://auth.example.com",
		ClientID:  "client-1",
		JTI:       "jti-2",
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		ExpiresAt: now.Add(-time.Hour).Unix(),
	}
	token, err := SignAccessToken(claims, secret)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	if _, err := VerifyAccessToken(token, secret, "https://auth.example.com", now); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	claims := Claims{
		Issuer:    "https://auth.example.com",
		ClientID:  "client-1",
		JTI:       "jti-3",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	token, err := SignAccessToken(claims, []byte("secret-one-is-long-enough"))
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	if _, err := VerifyAccessToken(token, []byte("secret-two-is-also-long-enough"), "https://auth.example.com", now); err == nil {
		t.Fatalf("expected token signed with a different secret to fail verification")
	}
}

func TestVerifyAccessTokenRejectsWrongIssuer(t *testing.T) {
	now := time.Now()
	secret := []byte("a-sufficiently-long-signing-secret")
	claims := Claims{
		Issuer:    "https://auth.example.com",
		ClientID:  "client-1",
		JTI:       "jti-4",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	token, err := SignAccessToken(claims, secret)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	if _, err := VerifyAccessToken(token, secret, "https://different-issuer.example.com", now); err == nil {
		t.Fatalf("expected mismatched issuer to fail verification")
	}
}
