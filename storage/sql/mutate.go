package sql

import (
	"context"
	"database/sql"

	"github.com/oauthcore-oss/oauthcore/storage"
)

// ConsumeAuthCode runs the compare-and-swap as a single UPDATE ... WHERE
// consumed = false inside a serializable transaction (with retry on
// Postgres) so that at most one concurrent caller ever observes a
// non-error result, satisfying the single-use invariant.
func (d *DB) ConsumeAuthCode(ctx context.Context, code string) (storage.AuthCode, error) {
	var result storage.AuthCode
	var resultErr error

	err := d.flavor.executeTx(d.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, d.q(`SELECT code, client_id, user_id, redirect_uri, scopes,
			pkce_challenge, pkce_method, issued_at, expires_at, consumed FROM auth_codes WHERE code = ?`), code)

		var c storage.AuthCode
		var scopes string
		if err := row.Scan(&c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &scopes, &c.PKCEChallenge,
			&c.PKCEMethod, &c.IssuedAt, &c.ExpiresAt, &c.Consumed); err != nil {
			if err == sql.ErrNoRows {
				resultErr = storage.ErrNotFound
				return nil
			}
			return err
		}
		if c.Consumed {
			resultErr = storage.ErrAlreadyConsumed
			return nil
		}

		res, err := tx.ExecContext(ctx, d.q(`UPDATE auth_codes SET consumed = TRUE WHERE code = ? AND consumed = FALSE`), code)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Lost the race to another transaction between the SELECT
			// and the UPDATE.
			resultErr = storage.ErrAlreadyConsumed
			return nil
		}

		c.Scopes = splitFields(scopes)
		result = c
		return nil
	})
	if err != nil {
		return storage.AuthCode{}, err
	}
	if resultErr != nil {
		return storage.AuthCode{}, resultErr
	}
	return result, nil
}

func (d *DB) RevokeToken(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, d.q(`UPDATE tokens SET revoked = TRUE WHERE id = ?`), id)
	return err
}

func (d *DB) RevokeTokensByParentRefresh(ctx context.Context, refreshID string) error {
	_, err := d.db.ExecContext(ctx, d.q(`UPDATE tokens SET revoked = TRUE WHERE parent_refresh_token = ?`), refreshID)
	return err
}

func (d *DB) RevokeTokensByParentAuthCode(ctx context.Context, code string) error {
	_, err := d.db.ExecContext(ctx, d.q(`UPDATE tokens SET revoked = TRUE WHERE parent_auth_code = ?`), code)
	return err
}

// RotateRefreshToken revokes old and inserts next in the same transaction,
// so a crash or concurrent reader can never observe one without the other.
func (d *DB) RotateRefreshToken(ctx context.Context, old string, next storage.Token) error {
	return d.flavor.executeTx(d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.q(`UPDATE tokens SET revoked = TRUE WHERE id = ?`), old); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, d.q(`INSERT INTO tokens
			(id, kind, client_id, user_id, scopes, issued_at, expires_at, revoked,
			 parent_refresh_token, parent_auth_code, parent_access_token)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			next.ID, string(next.Kind), next.ClientID, next.UserID, joinFields(next.Scopes),
			next.IssuedAt.UTC(), next.ExpiresAt.UTC(), next.Revoked,
			next.ParentRefreshToken, next.ParentAuthCode, next.ParentAccessToken)
		return err
	})
}
