package sql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/oauthcore-oss/oauthcore/storage"
)

func joinFields(v []string) string { return strings.Join(v, " ") }
func splitFields(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

func mapErr(err error) error {
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return storage.ErrAlreadyExists
	}
	if liteErr, ok := err.(sqlite3.Error); ok &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || liteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return storage.ErrAlreadyExists
	}
	return err
}

func (d *DB) CreateClient(ctx context.Context, c storage.Client) error {
	_, err := d.db.ExecContext(ctx, d.q(`INSERT INTO clients
		(id, name, secret_hash, client_type, redirect_uris, grant_types, allowed_scopes, default_scope, auth_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.SecretHash, string(c.Type), joinFields(c.RedirectURIs), joinFields(c.GrantTypes),
		joinFields(c.AllowedScopes), c.DefaultScope, string(c.TokenEndpointAuthMethod), c.CreatedAt.UTC())
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (d *DB) GetClient(ctx context.Context, id string) (storage.Client, error) {
	row := d.db.QueryRowContext(ctx, d.q(`SELECT id, name, secret_hash, client_type, redirect_uris, grant_types,
		allowed_scopes, default_scope, auth_method, created_at FROM clients WHERE id = ?`), id)

	var c storage.Client
	var clientType, authMethod, redirectURIs, grantTypes, allowedScopes string
	if err := row.Scan(&c.ID, &c.Name, &c.SecretHash, &clientType, &redirectURIs, &grantTypes,
		&allowedScopes, &c.DefaultScope, &authMethod, &c.CreatedAt); err != nil {
		return storage.Client{}, mapErr(err)
	}
	c.Type = storage.ClientType(clientType)
	c.TokenEndpointAuthMethod = storage.AuthMethod(authMethod)
	c.RedirectURIs = splitFields(redirectURIs)
	c.GrantTypes = splitFields(grantTypes)
	c.AllowedScopes = splitFields(allowedScopes)
	return c, nil
}

func (d *DB) CreateUser(ctx context.Context, u storage.User) error {
	_, err := d.db.ExecContext(ctx, d.q(`INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)`), u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (d *DB) scanUser(row *sql.Row) (storage.User, error) {
	var u storage.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return storage.User{}, mapErr(err)
	}
	return u, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (storage.User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx, d.q(`SELECT id, username, password_hash, created_at
		FROM users WHERE id = ?`), id))
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx, d.q(`SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?`), username))
}

func (d *DB) CreateAuthCode(ctx context.Context, c storage.AuthCode) error {
	_, err := d.db.ExecContext(ctx, d.q(`INSERT INTO auth_codes
		(code, client_id, user_id, redirect_uri, scopes, pkce_challenge, pkce_method, issued_at, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.Code, c.ClientID, c.UserID, c.RedirectURI, joinFields(c.Scopes), c.PKCEChallenge, c.PKCEMethod,
		c.IssuedAt.UTC(), c.ExpiresAt.UTC(), c.Consumed)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func scanAuthCode(row *sql.Row) (storage.AuthCode, error) {
	var c storage.AuthCode
	var scopes string
	if err := row.Scan(&c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &scopes, &c.PKCEChallenge,
		&c.PKCEMethod, &c.IssuedAt, &c.ExpiresAt, &c.Consumed); err != nil {
		return storage.AuthCode{}, mapErr(err)
	}
	c.Scopes = splitFields(scopes)
	return c, nil
}

func (d *DB) GetAuthCode(ctx context.Context, code string) (storage.AuthCode, error) {
	row := d.db.QueryRowContext(ctx, d.q(`SELECT code, client_id, user_id, redirect_uri, scopes,
		pkce_challenge, pkce_method, issued_at, expires_at, consumed FROM auth_codes WHERE code = ?`), code)
	return scanAuthCode(row)
}

func (d *DB) CreateToken(ctx context.Context, t storage.Token) error {
	_, err := d.db.ExecContext(ctx, d.q(`INSERT INTO tokens
		(id, kind, client_id, user_id, scopes, issued_at, expires_at, revoked,
		 parent_refresh_token, parent_auth_code, parent_access_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, string(t.Kind), t.ClientID, t.UserID, joinFields(t.Scopes), t.IssuedAt.UTC(), t.ExpiresAt.UTC(),
		t.Revoked, t.ParentRefreshToken, t.ParentAuthCode, t.ParentAccessToken)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func scanToken(row *sql.Row) (storage.Token, error) {
	var t storage.Token
	var kind, scopes string
	if err := row.Scan(&t.ID, &kind, &t.ClientID, &t.UserID, &scopes, &t.IssuedAt, &t.ExpiresAt, &t.Revoked,
		&t.ParentRefreshToken, &t.ParentAuthCode, &t.ParentAccessToken); err != nil {
		return storage.Token{}, mapErr(err)
	}
	t.Kind = storage.TokenKind(kind)
	t.Scopes = splitFields(scopes)
	return t, nil
}

func (d *DB) GetToken(ctx context.Context, id string) (storage.Token, error) {
	row := d.db.QueryRowContext(ctx, d.q(`SELECT id, kind, client_id, user_id, scopes, issued_at, expires_at,
		revoked, parent_refresh_token, parent_auth_code, parent_access_token FROM tokens WHERE id = ?`), id)
	return scanToken(row)
}

func (d *DB) GarbageCollect(ctx context.Context, now time.Time) (storage.GCResult, error) {
	var result storage.GCResult

	codesRes, err := d.db.ExecContext(ctx, d.q(`DELETE FROM auth_codes WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return result, err
	}
	if n, err := codesRes.RowsAffected(); err == nil {
		result.AuthCodes = n
	}

	tokensRes, err := d.db.ExecContext(ctx, d.q(`DELETE FROM tokens WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return result, err
	}
	if n, err := tokensRes.RowsAffected(); err == nil {
		result.Tokens = n
	}

	return result, nil
}
