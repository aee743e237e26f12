// Package grant dispatches a token-endpoint request to the grant-type
// specific logic in authcode and token, after the shared client
// authentication and policy checks every grant type needs.
package grant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oauthcore-oss/oauthcore/authcode"
	"github.com/oauthcore-oss/oauthcore/client"
	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/token"
)

// Grant type identifiers, RFC 6749 §4 and §6.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
	GrantPassword          = "password"
)

// EnabledGrants gates which grant types a deployment accepts,
// independent of what an individual client is registered for. RFC 6749
// §4.3 frames the password grant as a migration aid for trusted legacy
// clients, not a default-on capability, so it stays off unless a
// deployment opts in explicitly.
type EnabledGrants struct {
	AuthorizationCode bool
	ClientCredentials bool
	RefreshToken      bool
	Password          bool
}

// DefaultEnabledGrants enables every grant type except password.
func DefaultEnabledGrants() EnabledGrants {
	return EnabledGrants{AuthorizationCode: true, ClientCredentials: true, RefreshToken: true}
}

func (g EnabledGrants) allows(grantType string) bool {
	switch grantType {
	case GrantAuthorizationCode:
		return g.AuthorizationCode
	case GrantClientCredentials:
		return g.ClientCredentials
	case GrantRefreshToken:
		return g.RefreshToken
	case GrantPassword:
		return g.Password
	default:
		return false
	}
}

// TokenRequest is the grant-agnostic shape of a token-endpoint POST body
// plus the client credentials extracted from the Authorization header or
// form fields by the HTTP layer.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scope        string
	Username     string
	Password     string
}

// Dispatcher routes a TokenRequest to the right grant implementation.
type Dispatcher struct {
	store   storage.Storage
	clients *client.Registry
	codes   *authcode.Issuer
	tokens  *token.Issuer
	enabled EnabledGrants
}

// New returns a Dispatcher wiring the given storage, client registry,
// authorization-code issuer, and token issuer together.
func New(store storage.Storage, clients *client.Registry, codes *authcode.Issuer, tokens *token.Issuer, enabled EnabledGrants) *Dispatcher {
	return &Dispatcher{store: store, clients: clients, codes: codes, tokens: tokens, enabled: enabled}
}

func splitScope(scope string) []string {
	return strings.Fields(scope)
}

// Dispatch authenticates req's client, checks the grant type is both
// deployment-enabled and client-authorized, then executes the grant.
func (d *Dispatcher) Dispatch(ctx context.Context, req TokenRequest) (token.Response, error) {
	if !d.enabled.allows(req.GrantType) {
		return token.Response{}, oautherr.New(oautherr.UnsupportedGrantType, fmt.Sprintf("grant_type %q is not enabled", req.GrantType))
	}

	c, err := d.clients.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return token.Response{}, err
	}

	if err := client.AssertGrantAllowed(c, req.GrantType); err != nil {
		return token.Response{}, err
	}

	switch req.GrantType {
	case GrantAuthorizationCode:
		return d.authorizationCode(ctx, c, req)
	case GrantClientCredentials:
		return d.clientCredentials(ctx, c, req)
	case GrantRefreshToken:
		return d.refreshToken(ctx, c, req)
	case GrantPassword:
		return d.password(ctx, c, req)
	default:
		return token.Response{}, oautherr.New(oautherr.UnsupportedGrantType, fmt.Sprintf("unknown grant_type %q", req.GrantType))
	}
}

func (d *Dispatcher) authorizationCode(ctx context.Context, c storage.Client, req TokenRequest) (token.Response, error) {
	record, err := d.codes.Exchange(ctx, authcode.ExchangeInput{
		Code: req.Code, ClientID: c.ID, RedirectURI: req.RedirectURI, CodeVerifier: req.CodeVerifier,
	})
	if err != nil {
		return token.Response{}, err
	}

	return d.tokens.Mint(ctx, token.MintInput{
		ClientID: c.ID, UserID: record.UserID, Scopes: record.Scopes,
		ParentAuthCode: record.Code, IssueRefresh: true,
	})
}

func (d *Dispatcher) clientCredentials(ctx context.Context, c storage.Client, req TokenRequest) (token.Response, error) {
	scopes, err := client.ReduceScope(c, splitScope(req.Scope))
	if err != nil {
		return token.Response{}, err
	}
	// RFC 6749 §4.4.3: the authorization server MUST NOT issue a refresh
	// token for this grant.
	return d.tokens.Mint(ctx, token.MintInput{ClientID: c.ID, Scopes: scopes})
}

func (d *Dispatcher) refreshToken(ctx context.Context, c storage.Client, req TokenRequest) (token.Response, error) {
	if req.RefreshToken == "" {
		return token.Response{}, oautherr.New(oautherr.InvalidRequest, "refresh_token is required")
	}
	return d.tokens.Refresh(ctx, token.RefreshInput{
		RefreshToken: req.RefreshToken, ClientID: c.ID, Scopes: splitScope(req.Scope),
	})
}

func (d *Dispatcher) password(ctx context.Context, c storage.Client, req TokenRequest) (token.Response, error) {
	if req.Username == "" || req.Password == "" {
		return token.Response{}, oautherr.New(oautherr.InvalidRequest, "username and password are required")
	}

	user, err := d.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return token.Response{}, oautherr.New(oautherr.InvalidGrant, "invalid username or password")
		}
		return token.Response{}, oautherr.Wrap(oautherr.ServerError, "user lookup failed", err)
	}

	ok, err := cryptoutil.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return token.Response{}, oautherr.New(oautherr.InvalidGrant, "invalid username or password")
	}

	scopes, err := client.ReduceScope(c, splitScope(req.Scope))
	if err != nil {
		return token.Response{}, err
	}

	return d.tokens.Mint(ctx, token.MintInput{ClientID: c.ID, UserID: user.ID, Scopes: scopes, IssueRefresh: true})
}
