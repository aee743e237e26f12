// Package storage defines the persistence contract consumed by the
// authorization core. Implementations must support atomic consumption of
// authorization codes and atomic rotation of refresh tokens; every other
// operation may be independent.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup misses.
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyExists is returned by Create* calls on a duplicate ID.
	ErrAlreadyExists = errors.New("storage: already exists")

	// ErrAlreadyConsumed is returned by ConsumeAuthCode when the code was
	// already redeemed by a prior call.
	ErrAlreadyConsumed = errors.New("storage: authorization code already consumed")
)

// ClientType distinguishes clients that can safely hold a secret from
// those that cannot.
type ClientType string

const (
	ClientConfidential ClientType = "confidential"
	ClientPublic       ClientType = "public"
)

// AuthMethod is the token endpoint authentication method a client is
// registered to use.
type AuthMethod string

const (
	AuthMethodBasic AuthMethod = "client_secret_basic"
	AuthMethodPost  AuthMethod = "client_secret_post"
	AuthMethodNone  AuthMethod = "none"
)

// Client is a registered application.
type Client struct {
	ID   string
	Name string // display name only, never used in auth decisions

	// SecretHash is empty for public clients. Never serialized back out.
	SecretHash string
	Type       ClientType

	RedirectURIs []string
	GrantTypes   []string

	AllowedScopes []string
	DefaultScope  string // used when a request omits scope entirely

	TokenEndpointAuthMethod AuthMethod

	CreatedAt time.Time
}

// User is an end-user identity referenced by codes and tokens issued on
// their behalf.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AuthCode is a one-shot credential representing user consent.
type AuthCode struct {
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Scopes      []string

	PKCEChallenge string
	PKCEMethod    string

	IssuedAt  time.Time
	ExpiresAt time.Time

	// Consumed is true once redeemed. The record is retained (soft
	// delete) after consumption for replay diagnostics.
	Consumed bool
}

// TokenKind distinguishes access from refresh tokens in the unified
// token table.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is the server-side record backing either an opaque bearer string
// or the jti of a signed JWT access token.
type Token struct {
	ID   string // token string, or JWT jti
	Kind TokenKind

	ClientID string
	UserID   string // empty for client_credentials-issued tokens
	Scopes   []string

	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool

	// ParentRefreshToken links an AccessToken back to the RefreshToken it
	// was minted under (directly, or via a refresh_token exchange).
	// Revoking that RefreshToken cascades to every Token sharing this
	// value.
	ParentRefreshToken string

	// ParentAuthCode links both halves of an authorization_code grant
	// back to the code that produced them, for replay-triggered
	// cascade revocation.
	ParentAuthCode string

	// ParentAccessToken is the optional reverse linkage named in the
	// data model: the sibling AccessToken minted in the same exchange
	// as this RefreshToken.
	ParentAccessToken string
}

// GCResult reports how many expired records a GarbageCollect pass removed.
type GCResult struct {
	AuthCodes int64
	Tokens    int64
}

// Storage is the persistence contract used by the authorization core.
//
// ConsumeAuthCode and RotateRefreshToken MUST be atomic: implementations
// may use a SQL transaction with serializable isolation, a compare-and-set
// on a boolean flag, or an equivalent mechanism. All other methods may be
// implemented independently of one another.
type Storage interface {
	Close() error

	CreateClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (Client, error)

	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	CreateAuthCode(ctx context.Context, c AuthCode) error

	// GetAuthCode is a non-consuming diagnostic lookup; it returns the
	// record whether or not it has already been consumed.
	GetAuthCode(ctx context.Context, code string) (AuthCode, error)

	// ConsumeAuthCode atomically marks the code consumed and returns the
	// record that existed before consumption. A second concurrent or
	// later call for the same code MUST return ErrAlreadyConsumed (or
	// ErrNotFound if the code never existed); at most one caller across
	// all concurrent callers receives a non-error result.
	ConsumeAuthCode(ctx context.Context, code string) (AuthCode, error)

	CreateToken(ctx context.Context, t Token) error
	GetToken(ctx context.Context, id string) (Token, error)

	// RevokeToken sets revoked=true. Idempotent: revoking an
	// already-revoked or unknown token is not an error.
	RevokeToken(ctx context.Context, id string) error

	// RevokeTokensByParentRefresh revokes every Token whose
	// ParentRefreshToken equals refreshID. Used for cascade revocation.
	RevokeTokensByParentRefresh(ctx context.Context, refreshID string) error

	// RevokeTokensByParentAuthCode revokes every Token whose
	// ParentAuthCode equals code. Used for replay mitigation.
	RevokeTokensByParentAuthCode(ctx context.Context, code string) error

	// RotateRefreshToken atomically revokes old and inserts next in a
	// single step; neither effect is observable without the other.
	RotateRefreshToken(ctx context.Context, old string, next Token) error

	// GarbageCollect deletes expired authorization codes and tokens.
	GarbageCollect(ctx context.Context, now time.Time) (GCResult, error)
}
