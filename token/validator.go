package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
)

// RefreshInput describes a refresh_token grant request.
type RefreshInput struct {
	RefreshToken string
	ClientID     string
	Scopes       []string // optional narrower scope request, RFC 6749 §6
}

// Refresh validates an existing refresh token and mints a new access
// token (and, when rotation is enabled, a new refresh token that
// replaces the old one). A refresh token presented after having already
// been rotated away is treated the same as any other revoked token.
func (iss *Issuer) Refresh(ctx context.Context, in RefreshInput) (Response, error) {
	record, err := iss.store.GetToken(ctx, in.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, oautherr.New(oautherr.InvalidGrant, "refresh token not found")
		}
		return Response{}, oautherr.Wrap(oautherr.ServerError, "refresh token lookup failed", err)
	}
	if record.Kind != storage.TokenKindRefresh {
		return Response{}, oautherr.New(oautherr.InvalidGrant, "token is not a refresh token")
	}
	if record.Revoked {
		return Response{}, oautherr.New(oautherr.InvalidGrant, "refresh token has been revoked")
	}
	if record.ClientID != in.ClientID {
		return Response{}, oautherr.New(oautherr.InvalidGrant, "refresh token was not issued to this client")
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return Response{}, oautherr.New(oautherr.InvalidGrant, "refresh token expired")
	}

	scopes := record.Scopes
	if len(in.Scopes) > 0 {
		allowed := make(map[string]bool, len(record.Scopes))
		for _, s := range record.Scopes {
			allowed[s] = true
		}
		for _, s := range in.Scopes {
			if !allowed[s] {
				return Response{}, oautherr.New(oautherr.InvalidScope, fmt.Sprintf("scope %q exceeds originally granted scope", s))
			}
		}
		scopes = in.Scopes
	}

	now := time.Now().UTC()
	accessID, err := cryptoutil.GenerateSecret(cryptoutil.TokenEntropyBytes)
	if err != nil {
		return Response{}, fmt.Errorf("token: generate access token id: %w", err)
	}

	refreshTokenID := record.ID
	resp := Response{
		TokenType: "Bearer",
		ExpiresIn: int64(iss.cfg.AccessTTL.Seconds()),
		Scope:     strings.Join(scopes, " "),
	}

	accessRecord := storage.Token{
		ID: accessID, Kind: storage.TokenKindAccess, ClientID: in.ClientID, UserID: record.UserID,
		Scopes: scopes, IssuedAt: now, ExpiresAt: now.Add(iss.cfg.AccessTTL),
		ParentRefreshToken: refreshTokenID, ParentAuthCode: record.ParentAuthCode,
	}

	if iss.cfg.RotateRefresh {
		nextRefreshID, err := cryptoutil.GenerateSecret(cryptoutil.TokenEntropyBytes)
		if err != nil {
			return Response{}, fmt.Errorf("token: generate refresh token id: %w", err)
		}
		next := storage.Token{
			ID: nextRefreshID, Kind: storage.TokenKindRefresh, ClientID: in.ClientID, UserID: record.UserID,
			Scopes: scopes, IssuedAt: now, ExpiresAt: now.Add(iss.cfg.RefreshTTL),
			ParentAuthCode: record.ParentAuthCode, ParentAccessToken: accessID,
		}
		if err := iss.store.RotateRefreshToken(ctx, record.ID, next); err != nil {
			return Response{}, oautherr.Wrap(oautherr.ServerError, "rotate refresh token failed", err)
		}
		accessRecord.ParentRefreshToken = nextRefreshID
		resp.RefreshToken = nextRefreshID
	} else {
		resp.RefreshToken = record.ID
	}

	if err := iss.store.CreateToken(ctx, accessRecord); err != nil {
		return Response{}, fmt.Errorf("token: persist access token: %w", err)
	}

	signed, err := iss.signOrOpaque(accessID, in.ClientID, record.UserID, scopes, now, iss.cfg.AccessTTL)
	if err != nil {
		return Response{}, fmt.Errorf("token: sign access token: %w", err)
	}
	resp.AccessToken = signed

	return resp, nil
}

// IntrospectionResult is the RFC 7662 §2.2 response shape.
type IntrospectionResult struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Iss       string `json:"iss,omitempty"`
}

// Introspector answers RFC 7662 introspection requests against the
// storage-backed record for a token, regardless of whether the access
// token presented to callers is opaque or a signed JWT: the storage
// record, keyed by the token's own ID, is always the source of truth.
type Introspector struct {
	store storage.Storage
	cfg   Config
}

// NewIntrospector returns an Introspector sharing cfg with an Issuer.
func NewIntrospector(store storage.Storage, cfg Config) *Introspector {
	return &Introspector{store: store, cfg: cfg}
}

// Introspect reports whether tokenValue is a currently active token.
// token_type_hint is accepted for RFC 7662 compliance but unused: the
// storage layer keys both access and refresh tokens from one ID space,
// so a single lookup already disambiguates kind via storage.Token.Kind.
func (in *Introspector) Introspect(ctx context.Context, tokenValue string, _ string) (IntrospectionResult, error) {
	id := tokenValue
	if !in.cfg.OpaqueAccess && len(in.cfg.SigningSecret) > 0 {
		if claims, err := cryptoutil.VerifyAccessToken(tokenValue, in.cfg.SigningSecret, in.cfg.Issuer, time.Now()); err == nil {
			id = claims.JTI
		}
	}

	record, err := in.store.GetToken(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return IntrospectionResult{Active: false}, nil
		}
		return IntrospectionResult{}, oautherr.Wrap(oautherr.ServerError, "token lookup failed", err)
	}

	if record.Revoked || time.Now().UTC().After(record.ExpiresAt) {
		return IntrospectionResult{Active: false}, nil
	}

	tokenType := "access_token"
	if record.Kind == storage.TokenKindRefresh {
		tokenType = "refresh_token"
	}

	var username string
	if record.UserID != "" {
		if user, err := in.store.GetUser(ctx, record.UserID); err == nil {
			username = user.Username
		}
	}

	return IntrospectionResult{
		Active:    true,
		Scope:     strings.Join(record.Scopes, " "),
		ClientID:  record.ClientID,
		Username:  username,
		Sub:       record.UserID,
		TokenType: tokenType,
		Exp:       record.ExpiresAt.Unix(),
		Iat:       record.IssuedAt.Unix(),
		Iss:       in.cfg.Issuer,
	}, nil
}
