// Package revoke implements RFC 7009 token revocation, including the
// cascade semantics a refresh token's revocation implies for every
// access token minted from it.
package revoke

import (
	"context"
	"errors"
	"fmt"

	"github.com/oauthcore-oss/oauthcore/storage"
)

// Engine revokes tokens against a storage backend.
type Engine struct {
	store storage.Storage
}

// New returns an Engine backed by store.
func New(store storage.Storage) *Engine {
	return &Engine{store: store}
}

// Revoke marks tokenValue revoked, but only if it belongs to clientID.
// Per RFC 7009 §2.2, revoking an already-invalid or unknown token is not
// an error: the endpoint must return 200 either way so that a client
// can't use the response to enumerate valid tokens. A token owned by a
// different client is treated the same way — a no-op, not an error —
// so one client can never use this endpoint to kill another client's
// tokens. token_type_hint is accepted for wire compatibility but unused,
// for the same reason Introspector ignores it: one storage.Token ID
// space makes the hint redundant.
//
// Revoking a refresh token cascades to every access token minted from
// it, since a client able to revoke its refresh token expects the whole
// grant to die with it, not just the one token named in the request.
func (e *Engine) Revoke(ctx context.Context, tokenValue, clientID string, _ string) error {
	record, err := e.store.GetToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke: lookup token: %w", err)
	}

	if record.ClientID != clientID {
		return nil
	}

	if err := e.store.RevokeToken(ctx, record.ID); err != nil {
		return fmt.Errorf("revoke: revoke token: %w", err)
	}

	if record.Kind == storage.TokenKindRefresh {
		if err := e.store.RevokeTokensByParentRefresh(ctx, record.ID); err != nil {
			return fmt.Errorf("revoke: cascade revoke: %w", err)
		}
	}

	return nil
}
