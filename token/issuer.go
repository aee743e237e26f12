// Package token mints and validates access and refresh tokens, and
// implements RFC 7662 introspection over both.
package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/storage"
)

// Default token lifetimes. New substitutes them for a zero AccessTTL or
// RefreshTTL on a Config.
const (
	DefaultAccessTTL  = 1 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Config controls how an Issuer mints tokens.
type Config struct {
	Issuer          string
	SigningSecret   []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RotateRefresh   bool
	OpaqueAccess    bool // when true, mint opaque access tokens instead of JWTs
}

// Issuer mints access and refresh tokens and persists their storage
// records.
type Issuer struct {
	store storage.Storage
	cfg   Config
}

// New returns an Issuer backed by store, applying zero-value defaults to
// cfg's TTLs.
func New(store storage.Storage, cfg Config) *Issuer {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Issuer{store: store, cfg: cfg}
}

// Response is the RFC 6749 §5.1 access token JSON response shape.
type Response struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// MintInput describes the grant-specific facts needed to mint a token
// pair: which client and (optionally) user it belongs to, its scopes,
// and which records it descends from for cascade-revocation bookkeeping.
type MintInput struct {
	ClientID       string
	UserID         string
	Scopes         []string
	ParentAuthCode string
	IssueRefresh   bool
}

func (iss *Issuer) signOrOpaque(id, clientID, userID string, scopes []string, now time.Time, ttl time.Duration) (string, error) {
	if iss.cfg.OpaqueAccess || len(iss.cfg.SigningSecret) == 0 {
		return id, nil
	}
	claims := cryptoutil.Claims{
		Issuer:    iss.cfg.Issuer,
		Subject:   userID,
		ClientID:  clientID,
		Scope:     strings.Join(scopes, " "),
		JTI:       id,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return cryptoutil.SignAccessToken(claims, iss.cfg.SigningSecret)
}

// Mint issues an access token and, if requested and enabled, a sibling
// refresh token, persisting both as storage.Token records linked by
// ParentAccessToken/ParentRefreshToken.
func (iss *Issuer) Mint(ctx context.Context, in MintInput) (Response, error) {
	now := time.Now().UTC()

	accessID, err := cryptoutil.GenerateSecret(cryptoutil.TokenEntropyBytes)
	if err != nil {
		return Response{}, fmt.Errorf("token: generate access token id: %w", err)
	}

	accessRecord := storage.Token{
		ID:             accessID,
		Kind:           storage.TokenKindAccess,
		ClientID:       in.ClientID,
		UserID:         in.UserID,
		Scopes:         in.Scopes,
		IssuedAt:       now,
		ExpiresAt:      now.Add(iss.cfg.AccessTTL),
		ParentAuthCode: in.ParentAuthCode,
	}

	resp := Response{
		TokenType: "Bearer",
		ExpiresIn: int64(iss.cfg.AccessTTL.Seconds()),
		Scope:     strings.Join(in.Scopes, " "),
	}

	if in.IssueRefresh && iss.cfg.RefreshTTL > 0 {
		refreshID, err := cryptoutil.GenerateSecret(cryptoutil.TokenEntropyBytes)
		if err != nil {
			return Response{}, fmt.Errorf("token: generate refresh token id: %w", err)
		}
		accessRecord.ParentRefreshToken = refreshID

		refreshRecord := storage.Token{
			ID:                refreshID,
			Kind:              storage.TokenKindRefresh,
			ClientID:          in.ClientID,
			UserID:            in.UserID,
			Scopes:            in.Scopes,
			IssuedAt:          now,
			ExpiresAt:         now.Add(iss.cfg.RefreshTTL),
			ParentAuthCode:    in.ParentAuthCode,
			ParentAccessToken: accessID,
		}
		if err := iss.store.CreateToken(ctx, refreshRecord); err != nil {
			return Response{}, fmt.Errorf("token: persist refresh token: %w", err)
		}
		resp.RefreshToken = refreshID
	}

	if err := iss.store.CreateToken(ctx, accessRecord); err != nil {
		return Response{}, fmt.Errorf("token: persist access token: %w", err)
	}

	signed, err := iss.signOrOpaque(accessID, in.ClientID, in.UserID, in.Scopes, now, iss.cfg.AccessTTL)
	if err != nil {
		return Response{}, fmt.Errorf("token: sign access token: %w", err)
	}
	resp.AccessToken = signed

	return resp, nil
}
