// Package authcode issues and exchanges RFC 6749 §4.1 authorization
// codes, including the RFC 7636 PKCE challenge bound at issuance.
package authcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
)

// DefaultTTL is how long an issued authorization code remains
// exchangeable when Config.TTL is left unset. RFC 6749 §4.1.2
// recommends a maximum lifetime of 10 minutes; this implementation
// defaults to a tighter window since codes are meant to be exchanged
// immediately after the redirect.
const DefaultTTL = 2 * time.Minute

// Config controls authorization code lifetime.
type Config struct {
	TTL time.Duration
}

// Issuer mints and exchanges authorization codes against a storage
// backend.
type Issuer struct {
	store storage.Storage
	cfg   Config
}

// New returns an Issuer backed by store. A zero Config.TTL falls back
// to DefaultTTL.
func New(store storage.Storage, cfg Config) *Issuer {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	return &Issuer{store: store, cfg: cfg}
}

// IssueInput describes the authorization decision to record as a code.
type IssueInput struct {
	ClientID      string
	UserID        string
	RedirectURI   string
	Scopes        []string
	PKCEChallenge string
	PKCEMethod    string
}

// Issue creates and persists a new single-use authorization code.
func (iss *Issuer) Issue(ctx context.Context, in IssueInput) (string, error) {
	code, err := cryptoutil.GenerateSecret(cryptoutil.CodeEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("authcode: generate code: %w", err)
	}

	now := time.Now().UTC()
	record := storage.AuthCode{
		Code:          code,
		ClientID:      in.ClientID,
		UserID:        in.UserID,
		RedirectURI:   in.RedirectURI,
		Scopes:        in.Scopes,
		PKCEChallenge: in.PKCEChallenge,
		PKCEMethod:    in.PKCEMethod,
		IssuedAt:      now,
		ExpiresAt:     now.Add(iss.cfg.TTL),
	}
	if err := iss.store.CreateAuthCode(ctx, record); err != nil {
		return "", fmt.Errorf("authcode: persist code: %w", err)
	}
	return code, nil
}

// ExchangeInput describes a token-endpoint authorization_code grant
// request.
type ExchangeInput struct {
	Code         string
	ClientID     string
	RedirectURI  string
	CodeVerifier string
}

// Exchange consumes code exactly once and returns the authorization
// record if, and only if, every RFC 6749/7636 binding matches: the
// requesting client, the redirect_uri, expiry, and (when PKCE was used
// at issuance) the code_verifier.
//
// If the code has already been consumed, Exchange treats the request as
// a replay and cascade-revokes every token issued from it, per RFC 6749
// §4.1.2's single-use guidance: a non-expired code presented a second
// time is a strong signal of an intercepted authorization response.
func (iss *Issuer) Exchange(ctx context.Context, in ExchangeInput) (storage.AuthCode, error) {
	record, err := iss.store.ConsumeAuthCode(ctx, in.Code)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyConsumed) {
			if revokeErr := iss.store.RevokeTokensByParentAuthCode(ctx, in.Code); revokeErr != nil {
				return storage.AuthCode{}, oautherr.Wrap(oautherr.ServerError, "cascade revoke on replay failed", revokeErr)
			}
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "authorization code already used")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "authorization code not found")
		}
		return storage.AuthCode{}, oautherr.Wrap(oautherr.ServerError, "consume authorization code failed", err)
	}

	if record.ClientID != in.ClientID {
		return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "authorization code was not issued to this client")
	}

	if time.Now().UTC().After(record.ExpiresAt) {
		return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "authorization code expired")
	}

	if record.RedirectURI != "" {
		if in.RedirectURI == "" {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidRequest, "redirect_uri is required and must match the value used at authorization")
		}
		if in.RedirectURI != record.RedirectURI {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "redirect_uri does not match the value used at authorization")
		}
	}

	if record.PKCEChallenge != "" {
		if in.CodeVerifier == "" {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidRequest, "code_verifier is required for this authorization code")
		}
		ok, err := cryptoutil.VerifyPKCE(in.CodeVerifier, record.PKCEMethod, record.PKCEChallenge)
		if err != nil {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidRequest, fmt.Sprintf("invalid code_verifier: %v", err))
		}
		if !ok {
			return storage.AuthCode{}, oautherr.New(oautherr.InvalidGrant, "code_verifier does not match code_challenge")
		}
	} else if in.CodeVerifier != "" {
		return storage.AuthCode{}, oautherr.New(oautherr.InvalidRequest, "code_verifier supplied but no code_challenge was registered at authorization")
	}

	return record, nil
}
