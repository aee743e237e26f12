package sql

// schema is deliberately a single flat statement list rather than a
// versioned migration chain: this package targets a from-scratch
// deployment, and real migration tooling is an out-of-scope external
// collaborator.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		secret_hash TEXT NOT NULL DEFAULT '',
		client_type TEXT NOT NULL,
		redirect_uris TEXT NOT NULL DEFAULT '',
		grant_types TEXT NOT NULL DEFAULT '',
		allowed_scopes TEXT NOT NULL DEFAULT '',
		default_scope TEXT NOT NULL DEFAULT '',
		auth_method TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_codes (
		code TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		redirect_uri TEXT NOT NULL DEFAULT '',
		scopes TEXT NOT NULL DEFAULT '',
		pkce_challenge TEXT NOT NULL DEFAULT '',
		pkce_method TEXT NOT NULL DEFAULT '',
		issued_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		consumed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		client_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		scopes TEXT NOT NULL DEFAULT '',
		issued_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		parent_refresh_token TEXT NOT NULL DEFAULT '',
		parent_auth_code TEXT NOT NULL DEFAULT '',
		parent_access_token TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_client_issued ON tokens (client_id, issued_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_parent_refresh ON tokens (parent_refresh_token)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_parent_auth_code ON tokens (parent_auth_code)`,
}

func (d *DB) migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
