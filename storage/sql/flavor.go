package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Queries in this package are written with SQLite-style "?" placeholders
// and rewritten to Postgres-style "$1", "$2", ... at translation time,
// so each query is written once and works against either flavor.
func rewriteToPostgres(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func identity(query string) string { return query }

var flavorPostgres = flavor{
	name:        "postgres",
	bindRewrite: rewriteToPostgres,
	// Postgres defaults to read-committed; the consume-code and
	// refresh-rotation compound operations need serializable isolation
	// plus a retry loop on serialization failure.
	executeTx: func(db *sql.DB, fn func(*sql.Tx) error) error {
		ctx := context.Background()
		for {
			tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
			if err != nil {
				return err
			}
			if err := fn(tx); err != nil {
				tx.Rollback()
				if isSerializationFailure(err) {
					continue
				}
				return err
			}
			if err := tx.Commit(); err != nil {
				if isSerializationFailure(err) {
					continue
				}
				return err
			}
			return nil
		}
	},
}

var flavorSQLite = flavor{
	name:        "sqlite3",
	bindRewrite: identity,
	// SQLite serializes all writers behind a single file lock, so a
	// plain transaction already gives us the atomicity we need; no
	// retry loop is necessary.
	executeTx: func(db *sql.DB, fn func(*sql.Tx) error) error {
		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	},
}
