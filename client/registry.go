// Package client implements client registration, authentication, and the
// redirect-URI and grant/scope policy checks every grant type consults
// before issuing a token.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
)

// Registry wraps a storage.Storage with the client-facing policy checks
// the grant dispatcher and authorize endpoint both need.
type Registry struct {
	store storage.Storage
}

// New returns a Registry backed by store.
func New(store storage.Storage) *Registry {
	return &Registry{store: store}
}

// RegisterInput describes a new client to create.
type RegisterInput struct {
	Name                    string
	Type                    storage.ClientType
	RedirectURIs            []string
	GrantTypes              []string
	AllowedScopes           []string
	DefaultScope            string
	TokenEndpointAuthMethod storage.AuthMethod
}

// Register creates a new client, minting its ID and (for confidential
// clients) its secret. The plaintext secret is returned exactly once;
// only its hash is persisted.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (storage.Client, string, error) {
	id, err := cryptoutil.GenerateSecret(16)
	if err != nil {
		return storage.Client{}, "", fmt.Errorf("client: generate id: %w", err)
	}

	var plainSecret, secretHash string
	if in.Type == storage.ClientConfidential {
		plainSecret, err = cryptoutil.GenerateSecret(cryptoutil.ClientSecretEntropyBytes)
		if err != nil {
			return storage.Client{}, "", fmt.Errorf("client: generate secret: %w", err)
		}
		secretHash, err = cryptoutil.HashPassword(plainSecret)
		if err != nil {
			return storage.Client{}, "", fmt.Errorf("client: hash secret: %w", err)
		}
	}

	c := storage.Client{
		ID:                      id,
		Name:                    in.Name,
		SecretHash:              secretHash,
		Type:                    in.Type,
		RedirectURIs:            in.RedirectURIs,
		GrantTypes:              in.GrantTypes,
		AllowedScopes:           in.AllowedScopes,
		DefaultScope:            in.DefaultScope,
		TokenEndpointAuthMethod: in.TokenEndpointAuthMethod,
		CreatedAt:               time.Now().UTC(),
	}
	if err := r.store.CreateClient(ctx, c); err != nil {
		return storage.Client{}, "", fmt.Errorf("client: create: %w", err)
	}
	return c, plainSecret, nil
}

// Authenticate verifies clientID/clientSecret against the stored client
// record. Public clients (storage.ClientPublic) authenticate with an
// empty secret; confidential clients must present one that matches the
// stored Argon2id hash.
func (r *Registry) Authenticate(ctx context.Context, clientID, clientSecret string) (storage.Client, error) {
	c, err := r.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Client{}, oautherr.New(oautherr.InvalidClient, "unknown client")
		}
		return storage.Client{}, oautherr.Wrap(oautherr.ServerError, "client lookup failed", err)
	}

	if c.Type == storage.ClientPublic {
		return c, nil
	}

	if clientSecret == "" {
		return storage.Client{}, oautherr.New(oautherr.InvalidClient, "client secret required")
	}
	ok, err := cryptoutil.VerifyPassword(clientSecret, c.SecretHash)
	if err != nil || !ok {
		return storage.Client{}, oautherr.New(oautherr.InvalidClient, "client authentication failed")
	}
	return c, nil
}

// AssertRedirectURI checks uri against the client's registered set. An
// empty uri is accepted only when the client has exactly one registered
// redirect URI (RFC 6749 §3.1.2.3), in which case that URI is returned.
func AssertRedirectURI(c storage.Client, uri string) (string, error) {
	if len(c.RedirectURIs) == 0 {
		return "", oautherr.New(oautherr.InvalidRequest, "client has no registered redirect_uri")
	}
	if uri == "" {
		if len(c.RedirectURIs) == 1 {
			return c.RedirectURIs[0], nil
		}
		return "", oautherr.New(oautherr.InvalidRequest, "redirect_uri required: client has multiple registered")
	}
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return uri, nil
		}
	}
	return "", oautherr.New(oautherr.InvalidRequest, "redirect_uri does not match any registered URI")
}

// AssertGrantAllowed checks that grantType is in the client's registered
// grant_types list.
func AssertGrantAllowed(c storage.Client, grantType string) error {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return nil
		}
	}
	return oautherr.New(oautherr.UnauthorizedClient, fmt.Sprintf("client not authorized for grant_type %q", grantType))
}

// ReduceScope computes the effective scope set for a request: granted is
// the intersection of requested and the client's allowed scopes. An
// empty request falls back to the client's default scope. A non-empty
// request whose intersection with the allowed scopes is empty fails;
// otherwise the narrowed intersection is granted even if it drops some
// of what was requested.
func ReduceScope(c storage.Client, requested []string) ([]string, error) {
	if len(requested) == 0 {
		if c.DefaultScope == "" {
			return nil, nil
		}
		return []string{c.DefaultScope}, nil
	}

	allowed := make(map[string]bool, len(c.AllowedScopes))
	for _, s := range c.AllowedScopes {
		allowed[s] = true
	}
	granted := make([]string, 0, len(requested))
	for _, s := range requested {
		if allowed[s] {
			granted = append(granted, s)
		}
	}
	if len(granted) == 0 {
		return nil, oautherr.New(oautherr.InvalidScope, "no requested scope is allowed for this client")
	}
	return granted, nil
}
